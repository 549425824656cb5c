// Package validate checks struct fields against rules declared in a
// `validate` tag. Rules are separated by "|" and take parameters after ":".
//
//	type CheckoutLine struct {
//	    ProductID uint    `json:"product_id" validate:"required"`
//	    Quantity  int     `json:"quantity"   validate:"required|gte:1|lte:1000"`
//	}
//	type CheckoutInput struct {
//	    Items []CheckoutLine `json:"items" validate:"required|dive"`
//	}
//
// Supported rules: required, nullable, email, url, alpha_dash, numeric,
// min, max, gt, gte, lt, lte, between, in, not_in, regex, confirmed, dive.
//
// min/max compare length for strings and slices and value for numbers.
// A nil pointer field is only checked for required; the rest of its rules
// run when the pointer is set, which suits partial updates.
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Errors maps a json field path to its first failing message.
type Errors map[string]string

type rule func(c check) string

type check struct {
	field  string
	value  reflect.Value
	param  string
	parent reflect.Value
}

var rules = map[string]rule{
	"email":      ruleEmail,
	"url":        ruleURL,
	"alpha_dash": ruleAlphaDash,
	"numeric":    ruleNumeric,
	"min":        ruleMin,
	"max":        ruleMax,
	"gt":         compare("greater than", func(a, b float64) bool { return a > b }),
	"gte":        compare("at least", func(a, b float64) bool { return a >= b }),
	"lt":         compare("less than", func(a, b float64) bool { return a < b }),
	"lte":        compare("at most", func(a, b float64) bool { return a <= b }),
	"between":    ruleBetween,
	"in":         ruleIn,
	"not_in":     ruleNotIn,
	"regex":      ruleRegex,
	"confirmed":  ruleConfirmed,
}

// Struct validates every tagged field of v. Nested structs marked with
// dive are validated too, their keys prefixed with the parent path.
func Struct(v interface{}) map[string]string {
	errs := Errors{}
	walk(reflect.ValueOf(v), "", errs)
	return errs
}

// HasErrors reports whether errs holds at least one message.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func walk(rv reflect.Value, prefix string, errs Errors) {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}
		name := prefix + jsonName(sf)
		if msg := field(name, rv.Field(i), rv, strings.Split(tag, "|"), errs); msg != "" {
			errs[name] = msg
		}
	}
}

func field(name string, fv, parent reflect.Value, list []string, errs Errors) string {
	required := contains(list, "required")

	// a set pointer counts as present even when it points at a zero value
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			if required {
				return fmt.Sprintf("The %s field is required.", name)
			}
			return ""
		}
		fv = fv.Elem()
	} else if isEmpty(fv) {
		if required {
			return fmt.Sprintf("The %s field is required.", name)
		}
		return ""
	}

	for _, raw := range list {
		key, param, _ := strings.Cut(strings.TrimSpace(raw), ":")
		switch key {
		case "", "required", "nullable":
			continue
		case "dive":
			dive(name, fv, errs)
			continue
		}
		fn, ok := rules[key]
		if !ok {
			return fmt.Sprintf("The %s field has an unknown rule %q.", name, key)
		}
		if msg := fn(check{field: name, value: fv, param: param, parent: parent}); msg != "" {
			return msg
		}
	}
	return ""
}

func dive(name string, fv reflect.Value, errs Errors) {
	switch fv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < fv.Len(); i++ {
			walk(fv.Index(i), fmt.Sprintf("%s.%d.", name, i), errs)
		}
	case reflect.Struct, reflect.Ptr:
		walk(fv, name+".", errs)
	}
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ruleEmail(c check) string {
	if !emailRE.MatchString(str(c.value)) {
		return fmt.Sprintf("The %s must be a valid email address.", c.field)
	}
	return ""
}

func ruleURL(c check) string {
	u, err := url.ParseRequestURI(str(c.value))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Sprintf("The %s must be a valid URL.", c.field)
	}
	return ""
}

func ruleAlphaDash(c check) string {
	for _, r := range str(c.value) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return fmt.Sprintf("The %s may only contain letters, numbers, dashes and underscores.", c.field)
		}
	}
	return ""
}

func ruleNumeric(c check) string {
	if isNumber(c.value) {
		return ""
	}
	if _, err := strconv.ParseFloat(str(c.value), 64); err != nil {
		return fmt.Sprintf("The %s must be a number.", c.field)
	}
	return ""
}

func ruleMin(c check) string {
	n := num(c.param)
	if isNumber(c.value) {
		if toFloat(c.value) < n {
			return fmt.Sprintf("The %s must be at least %s.", c.field, c.param)
		}
		return ""
	}
	if float64(length(c.value)) < n {
		return fmt.Sprintf("The %s must be at least %s characters.", c.field, c.param)
	}
	return ""
}

func ruleMax(c check) string {
	n := num(c.param)
	if isNumber(c.value) {
		if toFloat(c.value) > n {
			return fmt.Sprintf("The %s may not be greater than %s.", c.field, c.param)
		}
		return ""
	}
	if float64(length(c.value)) > n {
		return fmt.Sprintf("The %s may not be greater than %s characters.", c.field, c.param)
	}
	return ""
}

func compare(word string, ok func(a, b float64) bool) rule {
	return func(c check) string {
		if !ok(toFloat(c.value), num(c.param)) {
			return fmt.Sprintf("The %s must be %s %s.", c.field, word, c.param)
		}
		return ""
	}
}

func ruleBetween(c check) string {
	lo, hi, _ := strings.Cut(c.param, ",")
	v := toFloat(c.value)
	if !isNumber(c.value) {
		v = float64(length(c.value))
	}
	if v < num(lo) || v > num(hi) {
		return fmt.Sprintf("The %s must be between %s and %s.", c.field, lo, hi)
	}
	return ""
}

func ruleIn(c check) string {
	if !contains(strings.Split(c.param, ","), str(c.value)) {
		return fmt.Sprintf("The selected %s is invalid.", c.field)
	}
	return ""
}

func ruleNotIn(c check) string {
	if contains(strings.Split(c.param, ","), str(c.value)) {
		return fmt.Sprintf("The selected %s is invalid.", c.field)
	}
	return ""
}

var regexCache sync.Map

func ruleRegex(c check) string {
	re, ok := regexCache.Load(c.param)
	if !ok {
		compiled, err := regexp.Compile(c.param)
		if err != nil {
			return fmt.Sprintf("The %s rule has an invalid pattern.", c.field)
		}
		re, _ = regexCache.LoadOrStore(c.param, compiled)
	}
	if !re.(*regexp.Regexp).MatchString(str(c.value)) {
		return fmt.Sprintf("The %s format is invalid.", c.field)
	}
	return ""
}

// ruleConfirmed requires a sibling <field>_confirmation with the same value.
func ruleConfirmed(c check) string {
	want := c.field + "_confirmation"
	if i := strings.LastIndex(c.field, "."); i >= 0 {
		want = c.field[i+1:] + "_confirmation"
	}
	rt := c.parent.Type()
	for i := 0; i < rt.NumField(); i++ {
		if jsonName(rt.Field(i)) == want {
			if str(c.parent.Field(i)) == str(c.value) {
				return ""
			}
			break
		}
	}
	return fmt.Sprintf("The %s confirmation does not match.", c.field)
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Struct:
		return false
	}
	return isNumber(v) && toFloat(v) == 0
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return num(str(v))
}

func length(v reflect.Value) int {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len()
	}
	return len([]rune(str(v)))
}

func str(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

func num(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

func contains(list []string, target string) bool {
	for _, s := range list {
		if strings.TrimSpace(s) == target {
			return true
		}
	}
	return false
}
