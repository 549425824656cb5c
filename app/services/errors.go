package services

import (
	"fmt"
	"net/http"

	"github.com/shashiranjanraj/panaya/app/repositories"
)

// Error carries the HTTP status it answers with. Messages are shown to the
// client as is.
type Error struct {
	msg    string
	status int
}

func (e *Error) Error() string   { return e.msg }
func (e *Error) StatusCode() int { return e.status }

var (
	ErrNotFound           = repositories.ErrNotFound
	ErrForbidden          = &Error{"you are not allowed to access this resource", http.StatusForbidden}
	ErrInvalidCredentials = &Error{"invalid email or password", http.StatusUnauthorized}
	ErrEmailTaken         = &Error{"email is already registered", http.StatusConflict}
	ErrEmptyCart          = &Error{"cart is empty", http.StatusUnprocessableEntity}
	ErrInsufficientStock  = &Error{"insufficient stock", http.StatusConflict}
	ErrPriceChanged       = &Error{"product price has changed, refresh your cart", http.StatusConflict}
	ErrConflict           = &Error{"the record was changed by another request, retry", http.StatusConflict}
	ErrInvalidProof       = &Error{"payment proof must be an image", http.StatusUnprocessableEntity}
)

// StockError names the product that ran out.
type StockError struct {
	ProductID uint
	Name      string
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Name)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError answers 422 with per-field messages.
type ValidationError map[string]string

func (v ValidationError) Error() string             { return "validation failed" }
func (v ValidationError) Fields() map[string]string { return v }

func invalid(field, msg string) ValidationError { return ValidationError{field: msg} }
