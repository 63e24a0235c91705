package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/niftimath/internal/ir"
)

// fakeLoader serves fixed images and counts reads per path.
type fakeLoader struct {
	images map[string]*ir.Image
	reads  map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{images: make(map[string]*ir.Image), reads: make(map[string]int)}
}

func (f *fakeLoader) add(path string, data ...float64) {
	img, _ := ir.NewImageFrom([]int{len(data)}, data)
	f.images[path] = img
}

func (f *fakeLoader) Load(_ context.Context, path string) (*ir.Image, ir.Header, error) {
	f.reads[path]++
	img, ok := f.images[path]
	if !ok {
		return nil, nil, errors.New("no such file")
	}
	return img.Clone(), "header:" + path, nil
}

func instrs(paths ...string) []ir.Instruction {
	out := make([]ir.Instruction, len(paths))
	for i, p := range paths {
		out[i] = ir.Instruction{Code: ir.PushImageRef, Path: p, Token: p, Pos: i}
	}
	return out
}

func TestResolve_LoadsOncePerPath(t *testing.T) {
	l := newFakeLoader()
	l.add("a.nii", 1, 2, 3)
	c := New(l)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Resolve(ctx, "a.nii")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, l.reads["a.nii"])
	assert.Equal(t, 1, c.Loads())
}

func TestResolve_IdenticalAndIsolated(t *testing.T) {
	l := newFakeLoader()
	l.add("a.nii", 1, 2, 3)
	c := New(l)
	c.Plan(instrs("a.nii", "a.nii"))
	ctx := context.Background()

	first, err := c.Resolve(ctx, "a.nii")
	require.NoError(t, err)
	second, err := c.Resolve(ctx, "a.nii")
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
	assert.NotSame(t, first, second)

	// Mutating one must not leak into the other.
	first.Data[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, second.Data)
}

func TestResolve_LastPlannedUseReleasesEntry(t *testing.T) {
	l := newFakeLoader()
	l.add("a.nii", 1, 2)
	l.add("b.nii", 3, 4)
	c := New(l)
	c.Plan(instrs("a.nii", "b.nii", "a.nii"))
	ctx := context.Background()

	_, err := c.Resolve(ctx, "a.nii")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Copies())
	assert.Equal(t, 1, c.Len())

	_, err = c.Resolve(ctx, "b.nii")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Copies(), "single-use path is handed over without copying")
	assert.Equal(t, 1, c.Len())

	_, err = c.Resolve(ctx, "a.nii")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Copies())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, l.reads["a.nii"])
}

func TestResolve_UnplannedAlwaysCopies(t *testing.T) {
	l := newFakeLoader()
	l.add("a.nii", 5)
	c := New(l)
	ctx := context.Background()

	a, err := c.Resolve(ctx, "a.nii")
	require.NoError(t, err)
	a.Data[0] = -1

	b, err := c.Resolve(ctx, "a.nii")
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, b.Data)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Copies())
}

func TestResolve_NormalizedKeys(t *testing.T) {
	l := newFakeLoader()
	l.add("dir/a.nii", 1)
	l.add("./dir/a.nii", 1)
	c := New(l)
	ctx := context.Background()

	_, err := c.Resolve(ctx, "dir/a.nii")
	require.NoError(t, err)
	_, err = c.Resolve(ctx, "./dir/a.nii")
	require.NoError(t, err)

	assert.Equal(t, 1, c.Loads())
	assert.Equal(t, "dir/a.nii", Key("./dir//a.nii"))
}

func TestResolve_LoadError(t *testing.T) {
	c := New(newFakeLoader())
	_, err := c.Resolve(context.Background(), "missing.nii")
	require.Error(t, err)

	var e *ir.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ir.ErrCodeImageLoad, e.Code)
	assert.Equal(t, "missing.nii", e.Path)
	assert.Contains(t, err.Error(), "no such file")
	assert.False(t, c.HasHeader())
}

func TestHeader_FirstSeenWins(t *testing.T) {
	l := newFakeLoader()
	l.add("a.nii", 1)
	l.add("b.nii", 2)
	c := New(l)
	ctx := context.Background()

	assert.Nil(t, c.Header())
	_, err := c.Resolve(ctx, "b.nii")
	require.NoError(t, err)
	_, err = c.Resolve(ctx, "a.nii")
	require.NoError(t, err)

	assert.True(t, c.HasHeader())
	assert.Equal(t, "header:b.nii", c.Header())
}

func TestClear(t *testing.T) {
	l := newFakeLoader()
	l.add("a.nii", 1)
	c := New(l)
	_, err := c.Resolve(context.Background(), "a.nii")
	require.NoError(t, err)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.HasHeader())
}

func TestLoaderFunc(t *testing.T) {
	called := false
	var l Loader = LoaderFunc(func(_ context.Context, path string) (*ir.Image, ir.Header, error) {
		called = true
		return ir.NewImage(1), nil, nil
	})
	_, _, err := l.Load(context.Background(), "x.nii")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestResolve_LoaderGetsExactPath(t *testing.T) {
	var got []string
	c := New(LoaderFunc(func(_ context.Context, path string) (*ir.Image, ir.Header, error) {
		got = append(got, path)
		return ir.NewImage(1), "hdr", nil
	}))
	ctx := context.Background()

	decomposed := "dir/cafe\u0301.nii"
	composed := "dir/caf\u00e9.nii"
	c.Plan(instrs(decomposed, composed, "./dir//b.nii"))

	for _, p := range []string{decomposed, composed, "./dir//b.nii"} {
		_, err := c.Resolve(ctx, p)
		require.NoError(t, err)
	}

	// The two spellings of café share one key, so only the first is read.
	assert.Equal(t, []string{decomposed, "./dir//b.nii"}, got)
	assert.Equal(t, Key(decomposed), Key(composed))
}
