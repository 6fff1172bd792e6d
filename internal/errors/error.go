package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRender  Category = "render"
	CategorySource  Category = "source"
	CategoryMount   Category = "mount"
	CategoryCleanup Category = "cleanup"
	CategoryServer  Category = "server"
	CategoryConfig  Category = "config"
)

// PreviewError is a structured error with a stable code and category.
type PreviewError struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error type (render, source, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error, typically compiler output.
	Detail string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *PreviewError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *PreviewError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *PreviewError) WithDetail(d string) *PreviewError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *PreviewError) Wrap(err error) *PreviewError {
	e.Wrapped = err
	return e
}

// New creates a PreviewError from a registered error code.
func New(code string) *PreviewError {
	template, ok := registry[code]
	if !ok {
		return &PreviewError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &PreviewError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new PreviewError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *PreviewError {
	return &PreviewError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a PreviewError.
func FromError(err error, code string) *PreviewError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*PreviewError); ok {
		return pe
	}
	return New(code).Wrap(err)
}

// IsCode reports whether err, or any error it wraps, carries the given code.
func IsCode(err error, code string) bool {
	for err != nil {
		if pe, ok := err.(*PreviewError); ok && pe.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
