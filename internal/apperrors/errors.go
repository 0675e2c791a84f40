// Package apperrors holds the error taxonomy shared by the forum, users and
// mail packages. Handlers map these kinds onto HTTP statuses.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/ids"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrIllegalOperation    = errors.New("illegal operation")
	ErrDuplicateFieldValue = errors.New("duplicate field value")

	// Validation kinds. A ValidationError matches both ErrValidation and its Kind.
	ErrInvalidObjectID          = ids.ErrInvalidObjectID
	ErrInvalidMatch             = errors.New("invalid match specifier")
	ErrInvalidVote              = errors.New("invalid vote operation")
	ErrDuplicateIncrement       = errors.New("duplicate increment operation")
	ErrMultipleIncrementTargets = errors.New("multiple increment targets")
	ErrInvalidDecrement         = errors.New("invalid decrement operation")
	ErrMultitargetDecrement     = errors.New("multitarget decrement")
	ErrIllegalParameters        = errors.New("illegal parameter combination")
	ErrInvalidInput             = errors.New("invalid input")
)

// NotFoundError reports a missing question, answer, comment, user or mail.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

// ValidationError is a deterministic client error naming the offending field.
type ValidationError struct {
	Kind   error
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg += ": " + e.Field
		if e.Value != nil {
			msg += fmt.Sprintf(" (%v)", e.Value)
		}
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == e.Kind
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func Invalid(kind error, field string, value interface{}, reason string) error {
	return &ValidationError{Kind: kind, Field: field, Value: value, Reason: reason}
}

// IllegalOperationError is returned when a user acts on content they may not
// act on, e.g. voting for their own answer.
type IllegalOperationError struct {
	Username string
	Reason   string
}

func (e *IllegalOperationError) Error() string {
	return fmt.Sprintf("illegal operation by %s: %s", e.Username, e.Reason)
}

func (e *IllegalOperationError) Is(target error) bool { return target == ErrIllegalOperation }

func Illegal(username, reason string) error {
	return &IllegalOperationError{Username: username, Reason: reason}
}

// DuplicateFieldError is mapped from a unique index violation.
type DuplicateFieldError struct {
	Field string
	Value string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("%s %q is already taken", e.Field, e.Value)
}

func (e *DuplicateFieldError) Is(target error) bool { return target == ErrDuplicateFieldValue }

// FromID lifts an identifier decode failure into the validation taxonomy.
func FromID(err error) error {
	var ie *ids.InvalidObjectIDError
	if errors.As(err, &ie) {
		return Invalid(ErrInvalidObjectID, ie.Field, ie.Value, "")
	}
	return err
}
