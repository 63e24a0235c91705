package nifti

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/ir"
)

// Encode writes t as a little-endian single-file NIfTI-1 stream. The
// header is copied; dim, datatype, bitpix, vox_offset and scaling are set
// from t, everything else (geometry, orientation, description) is kept.
func Encode(w io.Writer, t *cast.Typed, hdr *Header) error {
	h := *hdr
	h.SizeofHdr = HeaderSize
	h.Magic = magicSingle
	h.SetShape(t.Shape)
	h.SetDataType(t.Type)
	h.VoxOffset = DataOffset
	h.SclSlope = 1
	h.SclInter = 0

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	// Extension flag: none.
	if _, err := w.Write(make([]byte, DataOffset-HeaderSize)); err != nil {
		return fmt.Errorf("write extension flag: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, t.Data); err != nil {
		return fmt.Errorf("write voxels: %w", err)
	}
	return nil
}

// Save writes t to path using hdr as the template header. hdr must be a
// *Header, normally the one captured from the first input image; nil
// selects NewHeader. Failures are IMAGE_SAVE errors and leave no file at
// path.
func Save(path string, t *cast.Typed, hdr ir.Header) error {
	if err := save(path, t, hdr); err != nil {
		return &ir.Error{
			Code:    ir.ErrCodeImageSave,
			Message: "cannot write image",
			Pos:     -1,
			Path:    path,
			Err:     err,
		}
	}
	return nil
}

func save(path string, t *cast.Typed, hdr ir.Header) (err error) {
	var h *Header
	switch v := hdr.(type) {
	case nil:
		h = NewHeader(t.Shape)
	case *Header:
		h = v
	default:
		return fmt.Errorf("header of type %T is not a NIfTI-1 header", hdr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".niftimath-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return err
	}

	bw := bufio.NewWriter(tmp)
	var w io.Writer = bw
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(bw)
		w = zw
	}

	if err = Encode(w, t, h); err != nil {
		return err
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return err
		}
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
