package nifti

import (
	"bytes"
	"fmt"

	"github.com/roach88/niftimath/internal/cast"
)

const (
	// HeaderSize is sizeof_hdr for NIfTI-1.
	HeaderSize = 348

	// DataOffset is the vox_offset used on write: header plus the
	// 4-byte extension flag.
	DataOffset = 352
)

var magicSingle = [4]byte{'n', '+', '1', 0}

// Header is the 348-byte NIfTI-1 header in file field order.
type Header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	TOffset       float32
	GLMax         int32
	GLMin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QOffsetX      float32
	QOffsetY      float32
	QOffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// NewHeader returns a minimal header for shape with unit voxel sizes and
// datatype float64.
func NewHeader(shape []int) *Header {
	h := &Header{
		SizeofHdr: HeaderSize,
		Regular:   'r',
		SclSlope:  1,
		Magic:     magicSingle,
	}
	for i := range h.Pixdim {
		h.Pixdim[i] = 1
	}
	h.SetShape(shape)
	h.SetDataType(cast.F64)
	return h
}

// Shape returns dim[1..dim[0]].
func (h *Header) Shape() []int {
	n := int(h.Dim[0])
	if n < 0 || n > 7 {
		return nil
	}
	shape := make([]int, n)
	for i := range shape {
		shape[i] = int(h.Dim[i+1])
	}
	return shape
}

// SetShape sets dim[0] and dim[1..]; unused dimensions are set to 1.
func (h *Header) SetShape(shape []int) {
	h.Dim[0] = int16(len(shape))
	for i := 1; i < len(h.Dim); i++ {
		h.Dim[i] = 1
		if i <= len(shape) {
			h.Dim[i] = int16(shape[i-1])
		}
	}
}

// SetDataType sets datatype and bitpix for dt.
func (h *Header) SetDataType(dt cast.DataType) {
	h.Datatype = Code(dt)
	h.Bitpix = int16(dt.Size() * 8)
}

// Description returns descrip up to its first NUL.
func (h *Header) Description() string {
	return cstring(h.Descrip[:])
}

// SetDescription stores s in descrip, truncated to 79 bytes.
func (h *Header) SetDescription(s string) {
	h.Descrip = [80]byte{}
	copy(h.Descrip[:79], s)
}

// String summarizes the header for diagnostics.
func (h *Header) String() string {
	dt, _ := Type(h.Datatype)
	shape := h.Shape()
	return fmt.Sprintf("nifti1 dim=%v datatype=%d(%s) pixdim=%v", shape, h.Datatype, dt, h.Pixdim[1:len(shape)+1])
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// NIfTI-1 datatype codes.
const (
	codeUint8   int16 = 2
	codeInt16   int16 = 4
	codeInt32   int16 = 8
	codeFloat32 int16 = 16
	codeFloat64 int16 = 64
	codeInt8    int16 = 256
	codeUint16  int16 = 512
	codeUint32  int16 = 768
	codeInt64   int16 = 1024
	codeUint64  int16 = 1280
)

var typeCodes = map[cast.DataType]int16{
	cast.U8:  codeUint8,
	cast.I16: codeInt16,
	cast.I32: codeInt32,
	cast.F32: codeFloat32,
	cast.F64: codeFloat64,
	cast.I8:  codeInt8,
	cast.U16: codeUint16,
	cast.U32: codeUint32,
	cast.I64: codeInt64,
	cast.U64: codeUint64,
}

// Code returns the NIfTI datatype code of dt, or 0.
func Code(dt cast.DataType) int16 {
	return typeCodes[dt]
}

// Type returns the element type of a NIfTI datatype code.
func Type(code int16) (cast.DataType, bool) {
	for dt, c := range typeCodes {
		if c == code {
			return dt, true
		}
	}
	return "", false
}
