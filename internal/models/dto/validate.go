// Package dto holds HTTP request and response payloads and their validation rules.
package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/hongminglow/cabinet-be/internal/apperr"
)

var phonePattern = regexp.MustCompile(`^(0\d{9}|\+212\d{9})$`)

// Validator checks request payloads against their validate tags.
type Validator struct {
	inner *validator.Validate
}

// NewValidator registers the custom password and phone rules.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{inner: v}
}

// Struct validates s and reports failures as an *apperr.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.inner.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate payload: %w", err)
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return &apperr.ValidationError{Fields: fields}
}

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// StrongPassword requires at least eight characters mixing upper case, lower
// case, digits and symbols, and at most MaxPasswordBytes bytes.
func StrongPassword(s string) bool {
	if len([]rune(s)) < 8 || len(s) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "password":
		return "must be 8 to 72 bytes long with upper and lower case letters, a digit and a symbol"
	case "phone":
		return "must match 0XXXXXXXXX or +212XXXXXXXXX"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	default:
		return "is invalid"
	}
}
