package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/niftimath/internal/cache"
	"github.com/roach88/niftimath/internal/ir"
	"github.com/roach88/niftimath/internal/ops"
)

// Engine evaluates compiled RPN instruction lists.
//
// An Engine holds no per-run state; each Run builds its own cache, stack
// and clock, so one Engine may serve sequential or concurrent runs.
type Engine struct {
	loader cache.Loader
	pool   *ops.Pool
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreads sets the number of workers used by elementwise kernels and
// reductions. Values below 1 mean 1.
func WithThreads(n int) Option {
	return func(e *Engine) {
		e.pool = ops.NewPool(n)
	}
}

// WithPool sets the worker pool directly.
func WithPool(p *ops.Pool) Option {
	return func(e *Engine) {
		e.pool = p
	}
}

// WithLogger sets the logger for step diagnostics.
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine that reads images through loader.
func New(loader cache.Loader, opts ...Option) *Engine {
	e := &Engine{
		loader: loader,
		pool:   ops.NewPool(1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threads returns the configured worker count.
func (e *Engine) Threads() int {
	return e.pool.Workers()
}

// Result is the outcome of one evaluation run.
type Result struct {
	// Image is the single image left on the stack. Nil on failure.
	Image *ir.Image

	// Header is the header of the first image resolved during the run.
	Header ir.Header

	// Trace lists the completed instructions in execution order.
	Trace []Step

	// Loads counts image files read; Copies counts copies made for
	// repeated references.
	Loads  int
	Copies int
}

// Run evaluates instrs and returns the resulting image with its header.
//
// Run always returns a non-nil Result. On failure it carries the trace up
// to the failing instruction, and the error is an *ir.Error annotated with
// the failing token and position, or the context error if ctx was
// cancelled between instructions.
func (e *Engine) Run(ctx context.Context, instrs []ir.Instruction) (*Result, error) {
	c := cache.New(e.loader)
	c.Plan(instrs)

	var (
		st    stack
		clock = NewClock()
		res   = &Result{Trace: make([]Step, 0, len(instrs))}
	)
	finish := func(err error) (*Result, error) {
		res.Header = c.Header()
		res.Loads = c.Loads()
		res.Copies = c.Copies()
		return res, err
	}

	for _, in := range instrs {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		if err := e.exec(ctx, c, &st, in); err != nil {
			err = annotate(err, in)
			e.logger.Debug("instruction failed",
				"seq", clock.Current()+1,
				"token", in.Token,
				"pos", in.Pos,
				"code", ir.CodeOf(err),
			)
			return finish(err)
		}

		step := Step{
			Seq:   clock.Next(),
			Pos:   in.Pos,
			Token: in.Token,
			Code:  in.Code,
			Depth: st.len(),
			Top:   ir.Describe(st.peek()),
		}
		res.Trace = append(res.Trace, step)
		e.logger.Debug("step",
			"seq", step.Seq,
			"token", step.Token,
			"code", step.Code.String(),
			"depth", step.Depth,
			"top", step.Top,
		)
	}

	img, err := terminal(st)
	if err != nil {
		return finish(err)
	}
	if !c.HasHeader() {
		return finish(ir.Errorf(ir.ErrCodeNoHeader, "no image supplied a header for the output"))
	}
	res.Image = img
	return finish(nil)
}

// exec applies one instruction to the stack.
func (e *Engine) exec(ctx context.Context, c *cache.Cache, st *stack, in ir.Instruction) error {
	switch in.Code {
	case ir.PushScalar:
		st.push(ir.Scalar(in.Value))
		return nil

	case ir.PushImageRef:
		img, err := c.Resolve(ctx, in.Path)
		if err != nil {
			return err
		}
		st.push(img)
		return nil

	case ir.Binary:
		rhs, lhs, err := st.pop2(in.Op)
		if err != nil {
			return err
		}
		out, err := e.pool.Binary(in.Op, lhs, rhs)
		if err != nil {
			return err
		}
		st.push(out)
		return nil

	case ir.Unary:
		x, err := st.pop(in.Op)
		if err != nil {
			return err
		}
		out, err := e.pool.Unary(in.Op, x)
		if err != nil {
			return err
		}
		st.push(out)
		return nil

	case ir.Reduce:
		x, err := st.pop(in.Op)
		if err != nil {
			return err
		}
		out, err := e.pool.Reduce(in.Op, x)
		if err != nil {
			return err
		}
		st.push(out)
		return nil

	default:
		return ir.Errorf(ir.ErrCodeUnknownToken, "unknown instruction code %d", in.Code)
	}
}

// terminal checks that the final stack holds exactly one image.
func terminal(st stack) (*ir.Image, error) {
	switch st.len() {
	case 0:
		return nil, ir.Errorf(ir.ErrCodeInvalidResult, "expression left no operand on the stack")
	case 1:
	default:
		return nil, ir.Errorf(ir.ErrCodeInvalidResult, "expression left %d operands on the stack", st.len())
	}
	img, ok := st.peek().(*ir.Image)
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeInvalidResult, "expression evaluated to %s, not an image", ir.Describe(st.peek()))
	}
	return img, nil
}

// annotate fills the token and position of an *ir.Error that lacks them.
func annotate(err error, in ir.Instruction) error {
	var e *ir.Error
	if !errors.As(err, &e) {
		return err
	}
	if e.Token == "" {
		e.Token = in.Token
		e.Pos = in.Pos
	}
	return e
}
