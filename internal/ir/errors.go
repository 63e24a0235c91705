package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes evaluation failures.
type ErrorCode string

const (
	// ErrCodeUnknownToken indicates a token the classifier cannot categorize.
	ErrCodeUnknownToken ErrorCode = "UNKNOWN_TOKEN"

	// ErrCodeImageLoad indicates the image reader failed for a referenced path.
	ErrCodeImageLoad ErrorCode = "IMAGE_LOAD"

	// ErrCodeImageSave indicates the image writer failed for the output path.
	ErrCodeImageSave ErrorCode = "IMAGE_SAVE"

	// ErrCodeStackUnderflow indicates an operator needed more operands than available.
	ErrCodeStackUnderflow ErrorCode = "STACK_UNDERFLOW"

	// ErrCodeTypeMismatch indicates an operand of the wrong variant, e.g. a
	// reduction applied to a scalar.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeShapeMismatch indicates an image-image operation on different shapes.
	ErrCodeShapeMismatch ErrorCode = "SHAPE_MISMATCH"

	// ErrCodeInvalidResult indicates the final stack is not exactly one image.
	ErrCodeInvalidResult ErrorCode = "INVALID_RESULT"

	// ErrCodeUnsupportedDatatype indicates an unknown output cast target.
	ErrCodeUnsupportedDatatype ErrorCode = "UNSUPPORTED_DATATYPE"

	// ErrCodeNoHeader indicates output was requested but no image ever
	// supplied a header.
	ErrCodeNoHeader ErrorCode = "NO_HEADER_AVAILABLE"
)

// Error is a fatal evaluation error with structured context.
//
// Every Error aborts the run. Token, Path and Pos are set when they apply;
// Err carries the underlying cause (e.g. the decoder error for IMAGE_LOAD).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Token is the offending token, if any.
	Token string

	// Pos is the token position in the expression, or -1.
	Pos int

	// Path is the image path involved, if any.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var ctx []string
	if e.Token != "" {
		ctx = append(ctx, fmt.Sprintf("token=%q", e.Token))
	}
	if e.Pos >= 0 && e.Token != "" {
		ctx = append(ctx, fmt.Sprintf("pos=%d", e.Pos))
	}
	if e.Path != "" {
		ctx = append(ctx, "path="+e.Path)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error with no token or path context.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Pos: -1}
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
