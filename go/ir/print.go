package ir

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ExprString returns a textual representation of an expression tree.
func (fn *Function) ExprString(id ExprID) string {
	if id == NoExpr {
		return "<nil>"
	}
	e := &fn.exprs[id]
	switch e.Op {
	case OpConst:
		if e.Type == TypeInt {
			return fmt.Sprintf("%d", e.Value)
		}
		return fmt.Sprintf("%d:%s", e.Value, e.Type)
	case OpLocal:
		return fn.LocalName(e.Local, e.Version)
	case OpAdd:
		return fmt.Sprintf("(%s + %s)", fn.ExprString(e.X), fn.ExprString(e.Y))
	case OpPhi:
		args := make([]string, len(e.Edges))
		for i, edge := range e.Edges {
			args[i] = fmt.Sprintf("B%d: %s", edge.Pred, fn.ExprString(edge.Arg))
		}
		return fmt.Sprintf("φ(%s)", strings.Join(args, ", "))
	case OpArrLen:
		return fmt.Sprintf("len(%s)", fn.ExprString(e.X))
	case OpLoad:
		return fmt.Sprintf("*%s", fn.ExprString(e.X))
	case OpNewArray:
		return fmt.Sprintf("new[%s]", fn.ExprString(e.X))
	case OpOther:
		if e.Comment != "" {
			return fmt.Sprintf("<%s:%s>", e.Comment, e.Type)
		}
		return fmt.Sprintf("<%s>", e.Type)
	default:
		return fmt.Sprintf("<%s>", e.Op)
	}
}

func (fn *Function) CheckString(c *BoundsCheck) string {
	return fmt.Sprintf("check#%d(%s < %s)", c.ID, fn.ExprString(c.Index), fn.ExprString(c.Length))
}

func writeSet(w io.Writer, fn *Function, prefix string, set interface{ AppendTo([]int) []int }) {
	for _, idx := range set.AppendTo(nil) {
		fmt.Fprintf(w, "\t%s A%02d %s\n", prefix, idx, fn.assertions[idx])
	}
}

// WriteFunction writes a human-readable listing of fn to w.
func WriteFunction(w io.Writer, fn *Function) {
	fmt.Fprintf(w, "func %s:\n", fn.Name)
	for _, b := range fn.Blocks {
		fmt.Fprintf(w, "B%d:", b.ID)
		if b.Comment != "" {
			fmt.Fprintf(w, " ; %s", b.Comment)
		}
		if len(b.Preds) > 0 {
			fmt.Fprintf(w, " preds %v", b.Preds)
		}
		fmt.Fprintln(w)
		writeSet(w, fn, "assert", fn.BlockAssertions(b.ID))
		for _, stmt := range b.Stmts {
			switch stmt.Kind {
			case StmtDef:
				fmt.Fprintf(w, "\t%s = %s\n", fn.LocalName(stmt.Local, stmt.Version), fn.ExprString(stmt.RHS))
			case StmtCheck:
				fmt.Fprintf(w, "\t%s\n", fn.CheckString(stmt.Check))
			case StmtEval:
				fmt.Fprintf(w, "\t%s\n", fn.ExprString(stmt.RHS))
			}
		}
		succs := append([]BlockID(nil), b.Succs...)
		sort.Slice(succs, func(i, j int) bool { return succs[i] < succs[j] })
		for _, succ := range succs {
			fmt.Fprintf(w, "\t-> B%d\n", succ)
			writeSet(w, fn, "  assert", fn.EdgeAssertions(b.ID, succ))
		}
	}
}

func (fn *Function) String() string {
	var buf bytes.Buffer
	WriteFunction(&buf, fn)
	return buf.String()
}
