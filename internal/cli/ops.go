package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/niftimath/internal/ir"
)

// OpsResult lists the operator vocabulary by category.
type OpsResult struct {
	Binary []ir.Op `json:"binary"`
	Unary  []ir.Op `json:"unary"`
	Reduce []ir.Op `json:"reduce"`
}

// String renders one line per category.
func (r OpsResult) String() string {
	var b strings.Builder
	writeOps(&b, "binary", r.Binary)
	writeOps(&b, "unary", r.Unary)
	writeOps(&b, "reduce", r.Reduce)
	return strings.TrimSuffix(b.String(), "\n")
}

func writeOps(b *strings.Builder, category string, ops []ir.Op) {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	fmt.Fprintf(b, "%-7s %s\n", category+":", strings.Join(names, " "))
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operator vocabulary",
		Long: `List every operator token by category.

Binary operators pop the right operand first, then the left one.
Unary operators apply elementwise. Reductions turn an image into a scalar.

Examples:
  niftimath ops
  niftimath ops --format json`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format: rootOpts.Format,
				Writer: cmd.OutOrStdout(),
			}
			return formatter.Success(OpsResult{
				Binary: ir.BinaryOps,
				Unary:  ir.UnaryOps,
				Reduce: ir.ReduceOps,
			})
		},
	}
}
