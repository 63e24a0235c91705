package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/compiler"
	"github.com/roach88/niftimath/internal/engine"
	"github.com/roach88/niftimath/internal/ir"
	"github.com/roach88/niftimath/internal/nifti"
	"github.com/roach88/niftimath/internal/ops"
	"github.com/roach88/niftimath/internal/store"
)

// EvalResult is the success payload of an evaluation.
type EvalResult struct {
	RunID    string        `json:"run_id"`
	Output   string        `json:"output"`
	Datatype string        `json:"datatype"`
	Shape    []int         `json:"shape"`
	Digest   string        `json:"digest"`
	Threads  int           `json:"threads"`
	Steps    int           `json:"steps"`
	Trace    []engine.Step `json:"trace,omitempty"`
}

// String renders the text form printed by OutputFormatter.Success.
func (r EvalResult) String() string {
	return fmt.Sprintf("wrote %s: image[%s] %s (%d steps)",
		r.Output, ir.FormatShape(r.Shape), r.Datatype, r.Steps)
}

// evaluation collects everything one run produced, successful or not.
type evaluation struct {
	tokens []string
	output string
	dt     cast.DataType
	res    *engine.Result
	digest string
	err    error
}

func runEvaluate(opts *EvalOptions, args []string, cmd *cobra.Command) error {
	args, err := splitTrailingOptions(cmd, opts.RootOptions, args)
	if err != nil {
		return err
	}
	logger := setupLogging(opts.Verbose, cmd.ErrOrStderr())

	if opts.Threads < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--threads must be a positive integer, got %d", opts.Threads))
	}
	dt, err := cast.ParseDataType(opts.Datatype)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --datatype", err)
	}

	runID := opts.runID()
	startedAt := opts.now()
	logger = logger.With("run_id", runID)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   runID,
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	ev := &evaluation{
		tokens: args[:len(args)-1],
		output: args[len(args)-1],
		dt:     dt,
	}
	evaluate(ctx, ev, opts.Threads, logger)

	if opts.Database != "" {
		if err := recordRun(ctx, opts, runID, startedAt, ev); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		logger.Info("run recorded", "db", opts.Database)
	}

	var trace []engine.Step
	if ev.res != nil {
		trace = ev.res.Trace
	}
	if len(trace) > 0 {
		formatter.VerboseLog("%s", strings.TrimSuffix(engine.FormatTrace(trace), "\n"))
	}

	if ev.err != nil {
		if err := formatter.Error(errorCode(ev.err), errorMessage(ev.err), errorDetails(ev.err, len(trace))); err != nil {
			return err
		}
		return &ExitError{
			Code:     exitCodeFor(ev.err),
			Message:  "evaluation failed",
			Err:      ev.err,
			Reported: true,
		}
	}

	result := EvalResult{
		RunID:    runID,
		Output:   ev.output,
		Datatype: string(dt),
		Shape:    ev.res.Image.Shape,
		Digest:   ev.digest,
		Threads:  opts.Threads,
		Steps:    len(trace),
	}
	if opts.Verbose {
		result.Trace = trace
	}
	return formatter.Success(result)
}

// evaluate runs the pipeline: compile, check, evaluate, cast, save.
// The first failure is stored in ev.err and nothing is written.
func evaluate(ctx context.Context, ev *evaluation, threads int, logger *slog.Logger) {
	instrs, err := compiler.Compile(ev.tokens)
	if err != nil {
		ev.err = err
		return
	}
	if err := compiler.Check(instrs); err != nil {
		ev.err = err
		return
	}

	pool := ops.NewPool(threads)
	eng := engine.New(nifti.Loader{}, engine.WithPool(pool), engine.WithLogger(logger))

	logger.Debug("evaluating", "tokens", len(instrs), "threads", eng.Threads())
	ev.res, err = eng.Run(ctx, instrs)
	if err != nil {
		ev.err = err
		return
	}
	ev.digest = ir.ImageDigest(ev.res.Image)
	logger.Debug("evaluated", "loads", ev.res.Loads, "copies", ev.res.Copies)

	typed, err := cast.Cast(pool, ev.res.Image, ev.dt)
	if err != nil {
		ev.err = err
		return
	}
	if err := nifti.Save(ev.output, typed, ev.res.Header); err != nil {
		ev.err = err
		return
	}
	logger.Debug("saved output", "path", ev.output, "datatype", string(ev.dt))
}

// recordRun writes the run and its steps to the history database.
func recordRun(ctx context.Context, opts *EvalOptions, runID string, startedAt time.Time, ev *evaluation) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	run := store.Run{
		ID:            runID,
		Expression:    ev.tokens,
		Output:        ev.output,
		Datatype:      string(ev.dt),
		Threads:       opts.Threads,
		Status:        store.StatusOK,
		EngineVersion: ir.EngineVersion,
		StartedAt:     startedAt,
	}

	var steps []store.Step
	if ev.res != nil {
		steps = make([]store.Step, len(ev.res.Trace))
		for i, s := range ev.res.Trace {
			steps[i] = store.Step{
				Seq:   s.Seq,
				Pos:   s.Pos,
				Token: s.Token,
				Code:  s.Code.String(),
				Depth: s.Depth,
				Top:   s.Top,
			}
		}
		if ev.res.Image != nil {
			run.Shape = ev.res.Image.Shape
			run.Digest = ev.digest
		}
	}
	run.Steps = len(steps)

	if ev.err != nil {
		run.Status = store.StatusError
		run.ErrorCode = errorCode(ev.err)
		run.ErrorMessage = errorMessage(ev.err)
		run.Shape = nil
		run.Digest = ""
	}

	// A cancelled evaluation is still recorded.
	_, err = st.WriteRun(context.WithoutCancel(ctx), run, steps)
	return err
}

// errorCode returns the ir error code of err, or a CLI code for errors
// that do not come from evaluation.
func errorCode(err error) string {
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "E_CANCELLED"
	}
	return "E_EVALUATION"
}

// errorDetails returns the token, position and path context of err.
func errorDetails(err error, steps int) map[string]any {
	details := map[string]any{"steps": steps}
	var e *ir.Error
	if errors.As(err, &e) {
		if e.Token != "" {
			details["token"] = e.Token
			details["pos"] = e.Pos
		}
		if e.Path != "" {
			details["path"] = e.Path
		}
	}
	return details
}

// setupLogging installs a text handler on w, at Debug level when verbose.
func setupLogging(verbose bool, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// signalContext derives a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}
