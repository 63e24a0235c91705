package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/niftimath/internal/ir"
	"github.com/roach88/niftimath/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show the steps of one run
	Limit    int
}

// HistoryResult is the run listing.
type HistoryResult struct {
	Runs []store.Run `json:"runs"`
}

// RunDetail is one run with its step trace.
type RunDetail struct {
	Run   store.Run    `json:"run"`
	Steps []store.Step `json:"steps"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `List the evaluations recorded with --db, newest first, or show the
step trace of a single run.

Examples:
  niftimath history --db ./runs.db
  niftimath history --db ./runs.db --limit 5
  niftimath history --db ./runs.db --run 0192f1c4-...
  niftimath history --db ./runs.db --format json`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the steps of this run")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	// store.Open creates missing databases; history only reads existing ones.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{
		Format: opts.Format,
		Writer: cmd.OutOrStdout(),
	}

	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		steps, err := st.ReadSteps(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read steps", err)
		}

		detail := RunDetail{Run: run, Steps: steps}
		if opts.Format == "json" {
			return formatter.Success(detail)
		}
		outputRunText(cmd.OutOrStdout(), detail)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if opts.Format == "json" {
		return formatter.Success(HistoryResult{Runs: runs})
	}
	outputHistoryText(cmd.OutOrStdout(), runs)
	return nil
}

// outputHistoryText prints one line per run.
func outputHistoryText(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, run := range runs {
		fmt.Fprintf(w, "[%d] %s %-5s %-4s %s -> %s  %s\n",
			run.Seq,
			truncateID(run.ID),
			run.Status,
			run.Datatype,
			strings.Join(run.Expression, " "),
			run.Output,
			runOutcome(run))
	}
}

// outputRunText prints a run summary followed by its steps.
func outputRunText(w io.Writer, detail RunDetail) {
	run := detail.Run

	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Status: %s\n", runOutcome(run))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Command ===")
	fmt.Fprintf(w, "  Expression: %s\n", strings.Join(run.Expression, " "))
	fmt.Fprintf(w, "  Output:     %s\n", run.Output)
	fmt.Fprintf(w, "  Datatype:   %s\n", run.Datatype)
	fmt.Fprintf(w, "  Threads:    %d\n", run.Threads)
	fmt.Fprintf(w, "  Started:    %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  Engine:     %s\n", run.EngineVersion)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Steps ===")
	if len(detail.Steps) == 0 {
		fmt.Fprintln(w, "  (no steps)")
		return
	}
	for _, s := range detail.Steps {
		fmt.Fprintf(w, "  [%d] pos=%d %s %s depth=%d top=%s\n",
			s.Seq, s.Pos, s.Code, s.Token, s.Depth, s.Top)
	}
}

// runOutcome summarizes the result or the error of a run.
func runOutcome(run store.Run) string {
	if run.Status == store.StatusError {
		return fmt.Sprintf("error %s: %s", run.ErrorCode, run.ErrorMessage)
	}
	return fmt.Sprintf("ok image[%s] digest=%s", ir.FormatShape(run.Shape), truncateID(run.Digest))
}

// truncateID shortens an ID or digest for display.
func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
