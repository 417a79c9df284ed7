// Package apperr holds the domain error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates an id or name could not be resolved.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned indicates a role is already part of a principal's role set.
	ErrAlreadyAssigned = errors.New("role already assigned")
	// ErrAlreadyExists indicates a uniqueness conflict such as a duplicate email.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAuthenticationFailed indicates a credential mismatch.
	ErrAuthenticationFailed = errors.New("invalid email or password")
	// ErrInvalidToken indicates a bearer token that is malformed, expired or of the wrong purpose.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden indicates an authenticated caller lacking a required permission.
	ErrForbidden = errors.New("forbidden")
)

type notFoundError struct {
	entity string
	id     string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.entity, e.id)
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds an error naming the unresolved entity and id. It matches ErrNotFound.
func NotFound(entity string, id any) error {
	return &notFoundError{entity: entity, id: fmt.Sprint(id)}
}

// AlreadyAssigned builds an error naming the principal that already holds the role.
func AlreadyAssigned(principalID any) error {
	return fmt.Errorf("principal %v: %w", principalID, ErrAlreadyAssigned)
}

// FieldError is a single per-field validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the per-field messages of a rejected payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
