package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/panaya/pkg/validate"
)

type registerInput struct {
	Name                 string `json:"name"                  validate:"required|min:2|max:100"`
	Email                string `json:"email"                 validate:"required|email"`
	Password             string `json:"password"              validate:"required|min:8|confirmed"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role"                  validate:"nullable|in:customer,admin"`
	Phone                string `json:"phone"                 validate:"nullable|regex:^[0-9+ -]{6,20}$"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(registerInput{
		Name:                 "Somchai",
		Email:                "somchai@example.com",
		Password:             "secret123",
		PasswordConfirmation: "secret123",
		Role:                 "customer",
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(registerInput{})
	for _, f := range []string{"name", "email", "password"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected %s to be required, got %v", f, errs)
		}
	}
	if _, ok := errs["role"]; ok {
		t.Error("nullable role should not be reported")
	}
}

func TestConfirmedAndIn(t *testing.T) {
	errs := validate.Struct(registerInput{
		Name:                 "Ann",
		Email:                "ann@example.com",
		Password:             "secret123",
		PasswordConfirmation: "different",
		Role:                 "root",
	})
	if _, ok := errs["password"]; !ok {
		t.Error("expected confirmation mismatch")
	}
	if _, ok := errs["role"]; !ok {
		t.Error("expected role to be rejected")
	}
}

type line struct {
	ProductID uint    `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity"   validate:"required|gte:1"`
	Price     float64 `json:"price"      validate:"gte:0"`
}

type checkout struct {
	Items []line `json:"items" validate:"required|dive"`
}

func TestDiveReportsElementPaths(t *testing.T) {
	errs := validate.Struct(checkout{Items: []line{{ProductID: 1, Quantity: 2}, {ProductID: 0, Quantity: -1}}})
	if _, ok := errs["items.1.product_id"]; !ok {
		t.Errorf("expected items.1.product_id, got %v", errs)
	}
	if _, ok := errs["items.1.quantity"]; !ok {
		t.Errorf("expected items.1.quantity, got %v", errs)
	}
	if _, ok := errs["items.0.quantity"]; ok {
		t.Error("first line is valid")
	}

	errs = validate.Struct(checkout{})
	if _, ok := errs["items"]; !ok {
		t.Error("expected empty items to be required")
	}
}

type patch struct {
	Name  *string  `json:"name"  validate:"min:2"`
	Price *float64 `json:"price" validate:"gte:0"`
	Stock *int     `json:"stock" validate:"required|gte:0"`
}

func TestPointerFieldsSkipWhenNil(t *testing.T) {
	zero := 0
	errs := validate.Struct(patch{Stock: &zero})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got %v", errs)
	}

	short, neg := "x", -1.0
	errs = validate.Struct(patch{Name: &short, Price: &neg})
	for _, f := range []string{"name", "price", "stock"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected %s error, got %v", f, errs)
		}
	}
}

func TestBetweenOnNumbersAndStrings(t *testing.T) {
	type review struct {
		Rating  int    `json:"rating"  validate:"required|between:1,5"`
		Comment string `json:"comment" validate:"nullable|between:3,10"`
	}
	if errs := validate.Struct(review{Rating: 6}); errs["rating"] == "" {
		t.Error("rating 6 should fail")
	}
	if errs := validate.Struct(review{Rating: 5, Comment: "ok"}); errs["comment"] == "" {
		t.Error("2 char comment should fail")
	}
	if errs := validate.Struct(review{Rating: 1, Comment: "great"}); validate.HasErrors(errs) {
		t.Errorf("unexpected errors %v", errs)
	}
}
