package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := &Error{
		Code:    ErrCodeUnknownToken,
		Message: "unrecognized token",
		Token:   "frobnicate",
		Pos:     2,
	}
	assert.Equal(t, `UNKNOWN_TOKEN: unrecognized token (token="frobnicate", pos=2)`, err.Error())

	load := &Error{
		Code:    ErrCodeImageLoad,
		Message: "cannot read image",
		Pos:     -1,
		Path:    "missing.nii",
		Err:     errors.New("no such file"),
	}
	assert.Equal(t, "IMAGE_LOAD: cannot read image (path=missing.nii): no such file", load.Error())
}

func TestErrorf(t *testing.T) {
	err := Errorf(ErrCodeInvalidResult, "stack holds %d operands", 2)
	assert.Equal(t, "INVALID_RESULT: stack holds 2 operands", err.Error())
}

func TestIsCode_Wrapped(t *testing.T) {
	base := Errorf(ErrCodeStackUnderflow, "need 2 operands")
	wrapped := fmt.Errorf("evaluate: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeStackUnderflow))
	assert.False(t, IsCode(wrapped, ErrCodeShapeMismatch))
	assert.Equal(t, ErrCodeStackUnderflow, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, IsCode(nil, ErrCodeStackUnderflow))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := &Error{Code: ErrCodeImageSave, Message: "write failed", Pos: -1, Err: cause}
	assert.ErrorIs(t, err, cause)
}
