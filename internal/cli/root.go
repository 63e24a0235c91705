package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/niftimath/internal/cast"
	"github.com/roach88/niftimath/internal/compiler"
	"github.com/roach88/niftimath/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the niftimath CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&EvalOptions{})
}

// newRootCommand builds the command tree around eval, which tests use to
// inject run IDs and a clock.
func newRootCommand(eval *EvalOptions) *cobra.Command {
	opts := &RootOptions{}
	eval.RootOptions = opts

	cmd := &cobra.Command{
		Use:   "niftimath [flags] <token>... <output>",
		Short: "niftimath - RPN calculator for NIfTI images",
		Long: `Evaluate a postfix (RPN) expression over NIfTI-1 images and write the result.

Tokens ending in .nii or .nii.gz push an image, numeric tokens push a
scalar, and operator names pop their operands and push the result. The
last argument is the output path; a .gz suffix writes gzip.

Flags go before the expression or after the output path. Use -- when
the expression starts with a negative number.

Examples:
  niftimath t1.nii 2 mul t2.nii add sum.nii
  niftimath -d u8 mask.nii.gz abs out.nii.gz
  niftimath mask.nii.gz abs out.nii.gz -d u8 -t 2
  niftimath -t 4 --db runs.db a.nii reduce_mean b.nii sub centered.nii
  niftimath -- -1 a.nii mul neg.nii`,
		Args:          validateEvalArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(eval, args, cmd)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Expression tokens such as -1 must not be parsed as flags.
	cmd.Flags().SetInterspersed(false)

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and step trace")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Evaluation flags
	cmd.Flags().StringVarP(&eval.Datatype, "datatype", "d", string(cast.Default), "output datatype (u8|i8|u16|i16|u32|i32|u64|i64|f32|f64)")
	cmd.Flags().IntVarP(&eval.Threads, "threads", "t", 1, "worker threads for elementwise operators and reductions")
	cmd.Flags().StringVar(&eval.Database, "db", "", "record the run in this SQLite history database")

	// Add subcommands
	cmd.AddCommand(NewOpsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// validateEvalArgs requires at least one token and the output path.
func validateEvalArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(2)(cmd, args); err != nil {
		return WrapExitError(ExitCommandError, "expected an expression followed by an output path", err)
	}
	return nil
}

// splitTrailingOptions parses options that follow the output path and
// returns the positional arguments before them. An option followed by more
// positional arguments sits inside the expression and is an error.
func splitTrailingOptions(cmd *cobra.Command, opts *RootOptions, args []string) ([]string, error) {
	i := slices.IndexFunc(args, isOptionToken)
	if i < 0 {
		return args, nil
	}

	flags := cmd.Flags()
	if err := flags.Parse(args[i:]); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if rest := flags.Args(); len(rest) > 0 {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("option %q must come before the expression or after the output path", args[i]))
	}
	if err := validateEvalArgs(cmd, args[:i]); err != nil {
		return nil, err
	}
	if !isValidFormat(opts.Format) {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}
	return args[:i], nil
}

// isOptionToken reports whether tok looks like a flag rather than a
// negative number.
func isOptionToken(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	_, isNumber := compiler.ParseNumber(tok)
	return !isNumber
}

// usageArgs wraps a positional argument validator so that its errors exit
// with ExitCommandError.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Execute runs the command line in args and returns the process exit code.
// Errors not already rendered by a command are printed to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newRootCommand(&EvalOptions{}), args, stdout, stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{} // cobra falls back to os.Args on nil
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Plain errors come from cobra itself: unknown or missing flags.
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	if !exitErr.Reported {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitErr.Code
}

// EvalOptions holds flags for expression evaluation on the root command.
type EvalOptions struct {
	*RootOptions
	Datatype string
	Threads  int
	Database string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Now allows overriding the run timestamp (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time
}

func (o *EvalOptions) runID() string {
	if o.RunIDs == nil {
		return engine.UUIDv7Generator{}.Generate()
	}
	return o.RunIDs.Generate()
}

func (o *EvalOptions) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now()
}
