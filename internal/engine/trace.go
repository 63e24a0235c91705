package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/niftimath/internal/ir"
)

// Step records one completed instruction.
type Step struct {
	Seq   int64        `json:"seq"`
	Pos   int          `json:"pos"`
	Token string       `json:"token"`
	Code  ir.InstrCode `json:"code"`
	Depth int          `json:"depth"`
	Top   string       `json:"top"`
}

// FormatStep renders a step as one trace line:
//
//	seq=3 pos=2 binary mul depth=2 top=image[2x2]
func FormatStep(s Step) string {
	return fmt.Sprintf("seq=%d pos=%d %s %s depth=%d top=%s",
		s.Seq, s.Pos, s.Code, s.Token, s.Depth, s.Top)
}

// FormatTrace renders steps one per line, each terminated by a newline.
func FormatTrace(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		b.WriteString(FormatStep(s))
		b.WriteByte('\n')
	}
	return b.String()
}
