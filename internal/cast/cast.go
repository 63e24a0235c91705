// Package cast converts the float64 result image to the output datatype.
//
// Integer targets round half away from zero and saturate to the target
// range; NaN becomes 0. Float targets narrow directly.
package cast

import (
	"math"
	"strings"

	"github.com/roach88/niftimath/internal/ir"
	"github.com/roach88/niftimath/internal/ops"
)

// DataType is an output element type.
type DataType string

const (
	U8  DataType = "u8"
	I8  DataType = "i8"
	U16 DataType = "u16"
	I16 DataType = "i16"
	U32 DataType = "u32"
	I32 DataType = "i32"
	U64 DataType = "u64"
	I64 DataType = "i64"
	F32 DataType = "f32"
	F64 DataType = "f64"
)

// DataTypes lists every supported output type.
var DataTypes = []DataType{U8, I8, U16, I16, U32, I32, U64, I64, F32, F64}

// Default is the output type when none is requested.
const Default = F64

// ParseDataType resolves a --datatype value. Matching ignores case.
// Unknown names are UNSUPPORTED_DATATYPE errors.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range DataTypes {
		if dt == known {
			return dt, nil
		}
	}
	return "", &ir.Error{
		Code:    ir.ErrCodeUnsupportedDatatype,
		Message: "datatype must be one of " + joinTypes(),
		Token:   s,
		Pos:     -1,
	}
}

func joinTypes() string {
	names := make([]string, len(DataTypes))
	for i, dt := range DataTypes {
		names[i] = string(dt)
	}
	return strings.Join(names, ", ")
}

// Size returns the element size in bytes.
func (dt DataType) Size() int {
	switch dt {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether dt is an integer type.
func (dt DataType) IsInteger() bool {
	return dt != F32 && dt != F64 && dt.Size() > 0
}

// Typed is an image converted to a concrete element type.
//
// Data holds one of []uint8, []int8, []uint16, []int16, []uint32, []int32,
// []uint64, []int64, []float32 or []float64 according to Type.
type Typed struct {
	Type  DataType
	Shape []int
	Data  any
}

// Len returns the element count.
func (t *Typed) Len() int {
	return ir.ShapeLen(t.Shape)
}

// Float64s widens the elements back to float64.
func (t *Typed) Float64s() []float64 {
	switch d := t.Data.(type) {
	case []uint8:
		return widen(d)
	case []int8:
		return widen(d)
	case []uint16:
		return widen(d)
	case []int16:
		return widen(d)
	case []uint32:
		return widen(d)
	case []int32:
		return widen(d)
	case []uint64:
		return widen(d)
	case []int64:
		return widen(d)
	case []float32:
		return widen(d)
	case []float64:
		return append([]float64(nil), d...)
	default:
		return nil
	}
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

type integer interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64
}

func widen[T number](d []T) []float64 {
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = float64(v)
	}
	return out
}

// Cast converts img to dt. The pool may be nil for a single worker.
// The input image is not modified; a F64 cast shares its data.
func Cast(p *ops.Pool, img *ir.Image, dt DataType) (*Typed, error) {
	if _, err := ParseDataType(string(dt)); err != nil {
		return nil, err
	}

	out := &Typed{Type: dt, Shape: append([]int(nil), img.Shape...)}
	switch dt {
	case U8:
		out.Data = toInt[uint8](p, img.Data, 0, math.MaxUint8)
	case I8:
		out.Data = toInt[int8](p, img.Data, math.MinInt8, math.MaxInt8)
	case U16:
		out.Data = toInt[uint16](p, img.Data, 0, math.MaxUint16)
	case I16:
		out.Data = toInt[int16](p, img.Data, math.MinInt16, math.MaxInt16)
	case U32:
		out.Data = toInt[uint32](p, img.Data, 0, math.MaxUint32)
	case I32:
		out.Data = toInt[int32](p, img.Data, math.MinInt32, math.MaxInt32)
	case U64:
		out.Data = toInt[uint64](p, img.Data, 0, math.MaxUint64)
	case I64:
		out.Data = toInt[int64](p, img.Data, math.MinInt64, math.MaxInt64)
	case F32:
		f := make([]float32, len(img.Data))
		p.Range(len(img.Data), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				f[i] = float32(img.Data[i])
			}
		})
		out.Data = f
	case F64:
		out.Data = img.Data
	}
	return out, nil
}

// toInt rounds and saturates into [lo, hi]. float64(hi) may round up to
// the next power of two for 64-bit types, so the upper test is >=.
func toInt[T integer](p *ops.Pool, data []float64, lo, hi T) []T {
	out := make([]T, len(data))
	flo, fhi := float64(lo), float64(hi)
	p.Range(len(data), func(a, b int) {
		for i := a; i < b; i++ {
			r := math.Round(data[i])
			switch {
			case math.IsNaN(r):
				out[i] = 0
			case r <= flo:
				out[i] = lo
			case r >= fhi:
				out[i] = hi
			default:
				out[i] = T(r)
			}
		}
	})
	return out
}
