package nifti

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/ir"
)

var (
	// ErrNotNifti1 is returned when sizeof_hdr is not 348 in either byte order.
	ErrNotNifti1 = errors.New("nifti: not a NIfTI-1 header")

	// ErrPairFile is returned for "ni1" headers whose data lives in a
	// separate .img file.
	ErrPairFile = errors.New("nifti: two-file .hdr/.img images are not supported")
)

// Loader reads image files for the operand cache.
type Loader struct{}

// Load reads path. The header is returned as *Header.
func (Loader) Load(ctx context.Context, path string) (*ir.Image, ir.Header, error) {
	img, hdr, err := Read(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return img, hdr, nil
}

// Read opens path and decodes it. Gzip is detected from the stream.
func Read(ctx context.Context, path string) (*ir.Image, *Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	img, hdr, err := Decode(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, hdr, nil
}

// Decode reads a single-file NIfTI-1 stream, optionally gzip-compressed.
// Voxel values are scaled by scl_slope and scl_inter when slope is
// nonzero and finite.
func Decode(ctx context.Context, r io.Reader) (*ir.Image, *Header, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	hdr, order, err := readHeader(br)
	if err != nil {
		return nil, nil, err
	}

	shape, err := imageShape(hdr)
	if err != nil {
		return nil, nil, err
	}
	dt, ok := Type(hdr.Datatype)
	if !ok {
		return nil, nil, fmt.Errorf("nifti: unsupported datatype code %d", hdr.Datatype)
	}

	off := int64(hdr.VoxOffset)
	if off < HeaderSize {
		return nil, nil, fmt.Errorf("nifti: vox_offset %v is inside the header", hdr.VoxOffset)
	}
	if _, err := io.CopyN(io.Discard, br, off-HeaderSize); err != nil {
		return nil, nil, fmt.Errorf("nifti: skip extensions: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	n := ir.ShapeLen(shape)
	raw := make([]byte, n*dt.Size())
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, nil, fmt.Errorf("nifti: read %d voxels: %w", n, err)
	}

	img := &ir.Image{Shape: shape, Data: decodeVoxels(raw, dt, order)}
	if s := float64(hdr.SclSlope); s != 0 && !math.IsNaN(s) && !math.IsInf(s, 0) {
		inter := float64(hdr.SclInter)
		if math.IsNaN(inter) || math.IsInf(inter, 0) {
			inter = 0
		}
		if s != 1 || inter != 0 {
			for i, v := range img.Data {
				img.Data[i] = v*s + inter
			}
		}
	}
	return img, hdr, nil
}

// readHeader decodes the fixed header, choosing the byte order for which
// sizeof_hdr is 348.
func readHeader(r io.Reader) (*Header, binary.ByteOrder, error) {
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("nifti: read header: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw) == HeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw) == HeaderSize:
		order = binary.BigEndian
	default:
		return nil, nil, ErrNotNifti1
	}

	hdr := new(Header)
	if err := binary.Read(bytes.NewReader(raw), order, hdr); err != nil {
		return nil, nil, fmt.Errorf("nifti: decode header: %w", err)
	}

	switch hdr.Magic {
	case magicSingle:
	case [4]byte{'n', 'i', '1', 0}:
		return nil, nil, ErrPairFile
	default:
		return nil, nil, fmt.Errorf("nifti: bad magic %q", hdr.Magic[:3])
	}
	return hdr, order, nil
}

func imageShape(hdr *Header) ([]int, error) {
	n := int(hdr.Dim[0])
	if n < 1 || n > 7 {
		return nil, fmt.Errorf("nifti: dim[0]=%d out of range", n)
	}
	shape := hdr.Shape()
	for i, d := range shape {
		if d < 1 {
			return nil, fmt.Errorf("nifti: dim[%d]=%d", i+1, d)
		}
	}
	return shape, nil
}

func decodeVoxels(raw []byte, dt cast.DataType, order binary.ByteOrder) []float64 {
	size := dt.Size()
	out := make([]float64, len(raw)/size)
	for i := range out {
		b := raw[i*size : (i+1)*size]
		switch dt {
		case cast.U8:
			out[i] = float64(b[0])
		case cast.I8:
			out[i] = float64(int8(b[0]))
		case cast.U16:
			out[i] = float64(order.Uint16(b))
		case cast.I16:
			out[i] = float64(int16(order.Uint16(b)))
		case cast.U32:
			out[i] = float64(order.Uint32(b))
		case cast.I32:
			out[i] = float64(int32(order.Uint32(b)))
		case cast.U64:
			out[i] = float64(order.Uint64(b))
		case cast.I64:
			out[i] = float64(int64(order.Uint64(b)))
		case cast.F32:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case cast.F64:
			out[i] = math.Float64frombits(order.Uint64(b))
		}
	}
	return out
}
