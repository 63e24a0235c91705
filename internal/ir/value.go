package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Operand is a sealed interface for values flowing through the evaluation
// stack. Only Scalar and *Image implement it.
type Operand interface {
	operand() // Sealed - only these types implement it

	// Kind reports which variant the operand is.
	Kind() OperandKind
}

// OperandKind distinguishes the two operand variants.
type OperandKind int

const (
	// KindScalar is a single float64 value.
	KindScalar OperandKind = iota + 1
	// KindImage is an N-dimensional float64 array.
	KindImage
)

// String returns "scalar" or "image".
func (k OperandKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Scalar is a double-precision scalar operand.
type Scalar float64

func (Scalar) operand() {}

// Kind returns KindScalar.
func (Scalar) Kind() OperandKind { return KindScalar }

// Image is a dense N-dimensional float64 array.
//
// Data is stored flat in the order it was read from disk (first dimension
// fastest for NIfTI). Len(Data) always equals the product of Shape.
type Image struct {
	Shape []int
	Data  []float64
}

func (*Image) operand() {}

// Kind returns KindImage.
func (*Image) Kind() OperandKind { return KindImage }

// NewImage creates a zero-filled image of the given shape.
func NewImage(shape ...int) *Image {
	return &Image{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, ShapeLen(shape)),
	}
}

// NewImageFrom creates an image that takes ownership of data.
// Returns an error if len(data) does not match the shape.
func NewImageFrom(shape []int, data []float64) (*Image, error) {
	if n := ShapeLen(shape); n != len(data) {
		return nil, fmt.Errorf("image: shape %s holds %d elements, got %d", FormatShape(shape), n, len(data))
	}
	return &Image{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Len returns the number of elements.
func (img *Image) Len() int {
	return len(img.Data)
}

// Clone returns a deep copy that shares no memory with img.
func (img *Image) Clone() *Image {
	return &Image{
		Shape: append([]int(nil), img.Shape...),
		Data:  append([]float64(nil), img.Data...),
	}
}

// SameShape reports whether img and other have identical dimensions.
func (img *Image) SameShape(other *Image) bool {
	if len(img.Shape) != len(other.Shape) {
		return false
	}
	for i := range img.Shape {
		if img.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// ShapeLen returns the element count of a shape. An empty shape has one
// element (a zero-dimensional array).
func ShapeLen(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// FormatShape renders a shape as "2x3x4".
func FormatShape(shape []int) string {
	if len(shape) == 0 {
		return "()"
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

// Describe summarizes an operand for traces and diagnostics:
// "scalar(2.5)" or "image[2x2]".
func Describe(op Operand) string {
	switch v := op.(type) {
	case Scalar:
		return "scalar(" + strconv.FormatFloat(float64(v), 'g', -1, 64) + ")"
	case *Image:
		return "image[" + FormatShape(v.Shape) + "]"
	case nil:
		return "none"
	default:
		return fmt.Sprintf("%T", op)
	}
}

// Header is opaque image metadata (geometry, voxel size, orientation)
// captured from the first resolved image and handed back to the writer.
// The evaluator never inspects it.
type Header any
