package rangecheck

import (
	"fmt"
	"log"
	"strings"

	"honnef.co/go/rangecheck/go/ir"
)

const debugging = false

func debugf(f string, args ...any) {
	if debugging {
		log.Printf(f, args...)
	}
}

func (e *Engine) tracef(f string, args ...any) {
	if e.opts.Trace == nil {
		return
	}
	fmt.Fprintf(e.opts.Trace, "%s%s\n", strings.Repeat("  ", e.indent), fmt.Sprintf(f, args...))
}

// exprString formats an expression lazily, so that tracing costs nothing
// when it is disabled.
type exprString struct {
	fn *ir.Function
	id ir.ExprID
}

func (s exprString) String() string { return s.fn.ExprString(s.id) }
