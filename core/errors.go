package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ReferentialError indicates a write whose foreign key does not resolve.
// The API layer reports it like a validation failure.
type ReferentialError struct {
	Entity string
	Err    error
}

func NewReferentialError(entity string, err error) error {
	return &ReferentialError{Entity: entity, Err: err}
}

func (err ReferentialError) Error() string {
	if err.Err == nil {
		return err.Entity + " does not exist"
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
