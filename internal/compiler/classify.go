package compiler

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/niftimath/internal/ir"
)

// ImageSuffixes are the filename suffixes that mark a token as an image
// reference.
var ImageSuffixes = []string{".nii.gz", ".nii"}

// vocabulary maps operator tokens to their instruction category.
var vocabulary = buildVocabulary()

func buildVocabulary() map[ir.Op]ir.InstrCode {
	v := make(map[ir.Op]ir.InstrCode, len(ir.BinaryOps)+len(ir.UnaryOps)+len(ir.ReduceOps))
	for _, op := range ir.BinaryOps {
		v[op] = ir.Binary
	}
	for _, op := range ir.UnaryOps {
		v[op] = ir.Unary
	}
	for _, op := range ir.ReduceOps {
		v[op] = ir.Reduce
	}
	return v
}

// IsImagePath reports whether token names an image file.
func IsImagePath(token string) bool {
	for _, suffix := range ImageSuffixes {
		if strings.HasSuffix(token, suffix) {
			return true
		}
	}
	return false
}

// Lookup returns the instruction category of an operator token.
func Lookup(token string) (ir.InstrCode, bool) {
	code, ok := vocabulary[ir.Op(token)]
	return code, ok
}

// Classify maps one token to an Instruction. pos is the token's position in
// the expression and is carried into the instruction and any error.
//
// Image paths keep the exact bytes of the token so the loader opens the
// file the shell passed in. Cache keys are normalized separately.
func Classify(token string, pos int) (ir.Instruction, error) {
	instr := ir.Instruction{Token: token, Pos: pos}

	if IsImagePath(token) {
		instr.Code = ir.PushImageRef
		instr.Path = token
		return instr, nil
	}

	if v, ok := ParseNumber(token); ok {
		instr.Code = ir.PushScalar
		instr.Value = v
		return instr, nil
	}

	if code, ok := Lookup(token); ok {
		instr.Code = code
		instr.Op = ir.Op(token)
		return instr, nil
	}

	return ir.Instruction{}, &ir.Error{
		Code:    ir.ErrCodeUnknownToken,
		Message: "token is not an image path, number or operator",
		Token:   token,
		Pos:     pos,
	}
}

// ParseNumber parses a decimal floating-point literal, including inf,
// infinity and nan in any case. Hex floats and digit separators are not
// numbers here.
func ParseNumber(token string) (float64, bool) {
	if strings.ContainsAny(token, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err == nil {
		return v, true
	}
	// Out-of-range literals still parse to ±Inf or ±0, like any IEEE reader.
	if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
		return v, true
	}
	return 0, false
}

// Compile classifies every token of an expression in order and fails on the
// first unknown token.
func Compile(tokens []string) ([]ir.Instruction, error) {
	instrs := make([]ir.Instruction, 0, len(tokens))
	for i, tok := range tokens {
		instr, err := Classify(tok, i)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, instr)
	}
	return instrs, nil
}

// ImagePaths returns the image paths referenced by instrs, in first-use
// order. Paths that differ only in Unicode normalization count once.
func ImagePaths(instrs []ir.Instruction) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, in := range instrs {
		if in.Code != ir.PushImageRef {
			continue
		}
		if key := norm.NFC.String(in.Path); !seen[key] {
			seen[key] = true
			paths = append(paths, in.Path)
		}
	}
	return paths
}
