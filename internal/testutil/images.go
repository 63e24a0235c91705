// Package testutil provides NIfTI fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/ir"
	"github.com/roach88/niftimath/internal/nifti"
)

// WriteImage saves a float64 NIfTI-1 image at dir/name and returns its
// path. The header carries the description "fixture:<name>" so tests can
// tell which input supplied the output header.
func WriteImage(t testing.TB, dir, name string, shape []int, data ...float64) string {
	t.Helper()
	return WriteTyped(t, dir, name, cast.F64, shape, data...)
}

// WriteTyped is WriteImage with an explicit on-disk datatype.
func WriteTyped(t testing.TB, dir, name string, dt cast.DataType, shape []int, data ...float64) string {
	t.Helper()

	img, err := ir.NewImageFrom(shape, data)
	require.NoError(t, err)
	typed, err := cast.Cast(nil, img, dt)
	require.NoError(t, err)

	hdr := nifti.NewHeader(shape)
	hdr.SetDescription("fixture:" + name)

	path := filepath.Join(dir, name)
	require.NoError(t, nifti.Save(path, typed, hdr))
	return path
}

// ReadImage loads path and fails the test on error.
func ReadImage(t testing.TB, path string) (*ir.Image, *nifti.Header) {
	t.Helper()
	img, hdr, err := nifti.Read(context.Background(), path)
	require.NoError(t, err)
	return img, hdr
}
