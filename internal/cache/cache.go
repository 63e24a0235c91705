// Package cache resolves image references to loaded arrays, reading each
// distinct path at most once per evaluation run.
//
// The cache hands out values that the caller owns outright. Every reference
// except the last planned one receives an independent copy; the last one
// takes the cached array itself and the entry is released. Operators can
// therefore mutate what they receive in place without corrupting a later
// reference to the same path.
//
// # Example
//
//	c := cache.New(loader)
//	c.Plan(instrs)
//	img, err := c.Resolve(ctx, "t1.nii.gz")
package cache

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/niftimath/internal/ir"
)

// Loader reads an image file. Implemented by nifti.Loader.
type Loader interface {
	Load(ctx context.Context, path string) (*ir.Image, ir.Header, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (*ir.Image, ir.Header, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, path string) (*ir.Image, ir.Header, error) {
	return f(ctx, path)
}

// entry is one loaded path.
type entry struct {
	img *ir.Image

	// remaining counts planned references not yet resolved.
	// A negative value marks an unplanned entry that is never released.
	remaining int
}

// Cache memoizes image loads for one evaluation run.
//
// Safe for concurrent use, although the engine only touches it from the
// evaluation goroutine.
type Cache struct {
	mu      sync.Mutex
	loader  Loader
	items   map[string]*entry
	planned map[string]int
	header  ir.Header
	hasHdr  bool
	loads   int
	copies  int
}

// New creates an empty cache backed by loader.
func New(loader Loader) *Cache {
	return &Cache{
		loader:  loader,
		items:   make(map[string]*entry),
		planned: make(map[string]int),
	}
}

// Key returns the normalized cache key of a path: cleaned, and in Unicode
// NFC form.
func Key(path string) string {
	return filepath.Clean(norm.NFC.String(path))
}

// Plan records how many times each image path is referenced by instrs.
// Planned paths are released after their last reference. Calling Plan
// again adds to the counts.
func (c *Cache) Plan(instrs []ir.Instruction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, in := range instrs {
		if in.Code == ir.PushImageRef {
			c.planned[Key(in.Path)]++
		}
	}
}

// Resolve returns an image the caller owns for path, loading it on first
// reference. Load failures are IMAGE_LOAD errors.
func (c *Cache) Resolve(ctx context.Context, path string) (*ir.Image, error) {
	key := Key(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		img, hdr, err := c.loader.Load(ctx, path)
		if err != nil {
			return nil, &ir.Error{
				Code:    ir.ErrCodeImageLoad,
				Message: "cannot read image",
				Pos:     -1,
				Path:    path,
				Err:     err,
			}
		}
		c.loads++
		if !c.hasHdr {
			c.header = hdr
			c.hasHdr = hdr != nil
		}

		e = &entry{img: img, remaining: -1}
		if n, planned := c.planned[key]; planned {
			e.remaining = n
		}
		c.items[key] = e
	}

	if e.remaining < 0 {
		c.copies++
		return e.img.Clone(), nil
	}

	e.remaining--
	if e.remaining <= 0 {
		// Last planned reference: hand over the cached array itself.
		delete(c.items, key)
		delete(c.planned, key)
		return e.img, nil
	}
	c.planned[key] = e.remaining
	c.copies++
	return e.img.Clone(), nil
}

// Header returns the header of the first image ever loaded, or nil.
func (c *Cache) Header() ir.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header
}

// HasHeader reports whether any loaded image supplied a header.
func (c *Cache) HasHeader() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasHdr
}

// Len returns the number of entries currently retained.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Loads returns how many times the loader was called.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Copies returns how many copies Resolve has made for repeated references.
func (c *Cache) Copies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copies
}

// Clear drops all retained entries and plans. The captured header is kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
	c.planned = make(map[string]int)
}
