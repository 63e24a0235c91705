// Command niftimath evaluates RPN expressions over NIfTI-1 images.
package main

import (
	"context"
	"os"

	"github.com/roach88/niftimath/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
