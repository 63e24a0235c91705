package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/niftimath/internal/cache"
	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/compiler"
	"github.com/roach88/niftimath/internal/engine"
	"github.com/roach88/niftimath/internal/ir"
	"github.com/roach88/niftimath/internal/nifti"
)

// outputName is the file the result is saved to inside the workspace.
const outputName = "output.nii"

// Harness is the scenario execution environment.
// It owns a private workspace directory holding fixtures and output.
type Harness struct {
	dir    string
	logger *slog.Logger
}

// headerTag is the header description written into fixture images, so the
// output header can be traced back to its source.
func headerTag(name string) string {
	return "scenario:" + name
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh workspace directory for isolation.
// Execution flow:
//  1. Write fixture images as NIfTI files
//  2. Compile and statically check the expression
//  3. Evaluate through the engine
//  4. Cast, save and read back the output
//  5. Compare the outcome with the expectation
//
// Evaluation errors are outcomes, not Go errors. The returned error is
// reserved for failures of the harness itself (workspace, fixtures).
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "niftimath-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in scenarios
	}

	if err := h.writeImages(scenario.Images); err != nil {
		return nil, fmt.Errorf("failed to write fixtures: %w", err)
	}

	result := NewResult(scenario.Name)
	out := h.evaluate(ctx, scenario, result)

	if out.image != nil {
		result.Shape = out.image.Shape
		result.Data = out.image.Data
		result.Digest = ir.ImageDigest(out.image)
	}
	if out.err != nil {
		result.Code = string(ir.CodeOf(out.err))
		result.Message = out.err.Error()
	}

	for _, e := range checkExpect(scenario.Expect, out, result.Trace) {
		result.AddError(e.Error())
	}
	return result, nil
}

// writeImages saves every fixture into the workspace with a header tagged
// by its name.
func (h *Harness) writeImages(images []ImageSpec) error {
	for _, fx := range images {
		dt := cast.F64
		if fx.Datatype != "" {
			var err error
			if dt, err = cast.ParseDataType(fx.Datatype); err != nil {
				return err
			}
		}

		img, err := ir.NewImageFrom(fx.Shape, fx.Data)
		if err != nil {
			return fmt.Errorf("%s: %w", fx.Name, err)
		}
		typed, err := cast.Cast(nil, img, dt)
		if err != nil {
			return fmt.Errorf("%s: %w", fx.Name, err)
		}

		hdr := nifti.NewHeader(fx.Shape)
		hdr.SetDescription(headerTag(fx.Name))
		if err := nifti.Save(filepath.Join(h.dir, fx.Name), typed, hdr); err != nil {
			return err
		}
	}
	return nil
}

// loader resolves relative image tokens inside the workspace.
func (h *Harness) loader() cache.Loader {
	return cache.LoaderFunc(func(ctx context.Context, path string) (*ir.Image, ir.Header, error) {
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.dir, path)
		}
		return nifti.Loader{}.Load(ctx, path)
	})
}

// evaluate follows the command-line pipeline and records the trace.
func (h *Harness) evaluate(ctx context.Context, s *Scenario, result *Result) outcome {
	dt := cast.Default
	if s.Datatype != "" {
		var err error
		if dt, err = cast.ParseDataType(s.Datatype); err != nil {
			return outcome{err: err}
		}
	}

	instrs, err := compiler.Compile(s.Expr)
	if err != nil {
		return outcome{err: err}
	}
	if err := compiler.Check(instrs); err != nil {
		return outcome{err: err}
	}

	eng := engine.New(h.loader(), engine.WithThreads(s.Threads), engine.WithLogger(h.logger))
	res, err := eng.Run(ctx, instrs)
	result.Trace = res.Trace
	if err != nil {
		return outcome{err: err}
	}

	typed, err := cast.Cast(nil, res.Image, dt)
	if err != nil {
		return outcome{err: err}
	}
	outPath := filepath.Join(h.dir, outputName)
	if err := nifti.Save(outPath, typed, res.Header); err != nil {
		return outcome{err: err}
	}

	img, hdr, err := nifti.Read(ctx, outPath)
	if err != nil {
		return outcome{err: fmt.Errorf("read back output: %w", err)}
	}
	return outcome{image: img, header: hdr.Description()}
}
