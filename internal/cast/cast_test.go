package cast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/niftimath/internal/ir"
	"github.com/roach88/niftimath/internal/ops"
)

func image(t *testing.T, data ...float64) *ir.Image {
	t.Helper()
	img, err := ir.NewImageFrom([]int{len(data)}, data)
	require.NoError(t, err)
	return img
}

func TestParseDataType(t *testing.T) {
	for _, dt := range DataTypes {
		got, err := ParseDataType(string(dt))
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}

	got, err := ParseDataType(" F32 ")
	require.NoError(t, err)
	assert.Equal(t, F32, got)

	for _, bad := range []string{"", "float", "u128", "int"} {
		_, err := ParseDataType(bad)
		assert.True(t, ir.IsCode(err, ir.ErrCodeUnsupportedDatatype), "input %q", bad)
	}
}

func TestDataType_Size(t *testing.T) {
	assert.Equal(t, 1, U8.Size())
	assert.Equal(t, 2, I16.Size())
	assert.Equal(t, 4, F32.Size())
	assert.Equal(t, 8, U64.Size())
	assert.Equal(t, 0, DataType("x").Size())
	assert.True(t, I32.IsInteger())
	assert.False(t, F64.IsInteger())
	assert.False(t, DataType("x").IsInteger())
}

func TestCast_RoundHalfAwayFromZero(t *testing.T) {
	for _, dt := range []DataType{I8, I16, I32, I64} {
		t.Run(string(dt), func(t *testing.T) {
			out, err := Cast(nil, image(t, 1.4, 1.5, -1.5), dt)
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 2, -2}, out.Float64s())
		})
	}
}

func TestCast_Saturates(t *testing.T) {
	src := []float64{-1e30, -129, -0.4, 254.6, 300, 1e30, math.NaN(), math.Inf(1), math.Inf(-1)}

	tests := []struct {
		dt   DataType
		want any
	}{
		{U8, []uint8{0, 0, 0, 255, 255, 255, 0, 255, 0}},
		{I8, []int8{-128, -128, 0, 127, 127, 127, 0, 127, -128}},
		{U16, []uint16{0, 0, 0, 255, 300, math.MaxUint16, 0, math.MaxUint16, 0}},
		{I16, []int16{math.MinInt16, -129, 0, 255, 300, math.MaxInt16, 0, math.MaxInt16, math.MinInt16}},
		{U32, []uint32{0, 0, 0, 255, 300, math.MaxUint32, 0, math.MaxUint32, 0}},
		{I32, []int32{math.MinInt32, -129, 0, 255, 300, math.MaxInt32, 0, math.MaxInt32, math.MinInt32}},
		{U64, []uint64{0, 0, 0, 255, 300, math.MaxUint64, 0, math.MaxUint64, 0}},
		{I64, []int64{math.MinInt64, -129, 0, 255, 300, math.MaxInt64, 0, math.MaxInt64, math.MinInt64}},
	}

	for _, tt := range tests {
		t.Run(string(tt.dt), func(t *testing.T) {
			out, err := Cast(nil, image(t, src...), tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.dt, out.Type)
			assert.Equal(t, tt.want, out.Data)
		})
	}
}

func TestCast_Floats(t *testing.T) {
	img := image(t, 0.1, -2.5, math.Inf(1))

	out, err := Cast(nil, img, F32)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, -2.5, float32(math.Inf(1))}, out.Data)

	out, err = Cast(nil, img, F64)
	require.NoError(t, err)
	assert.Equal(t, img.Data, out.Data)
}

func TestCast_KeepsShape(t *testing.T) {
	img, err := ir.NewImageFrom([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	out, err := Cast(nil, img, U8)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, out.Shape)
	assert.Equal(t, 6, out.Len())

	out.Shape[0] = 99
	assert.Equal(t, []int{2, 3}, img.Shape, "shape is copied")
}

func TestCast_Unsupported(t *testing.T) {
	_, err := Cast(nil, image(t, 1), DataType("c64"))
	assert.True(t, ir.IsCode(err, ir.ErrCodeUnsupportedDatatype))
}

func TestCast_ParallelMatchesSerial(t *testing.T) {
	data := make([]float64, 50000)
	for i := range data {
		data[i] = float64(i%700) - 350.5
	}
	img := image(t, data...)

	serial, err := Cast(nil, img, I8)
	require.NoError(t, err)
	parallel, err := Cast(ops.NewPool(6), img, I8)
	require.NoError(t, err)
	assert.Equal(t, serial.Data, parallel.Data)
}
