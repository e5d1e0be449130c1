// Package bce defines an Analyzer that reports the bounds checks of a
// package that range propagation cannot prove redundant.
package bce

import (
	"bytes"
	"fmt"
	"go/types"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"sync"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/ssa"
	"honnef.co/go/rangecheck/config"
	"honnef.co/go/rangecheck/go/irgen"
	"honnef.co/go/rangecheck/rangecheck"
)

const doc = `report bounds checks that cannot be eliminated

Every indexing operation on an array, slice or string is guarded by a
bounds check. The analyzer runs range propagation on each function and
reports the checks it could not prove redundant, or, with -removed, the
ones it could. Settings are read from rangecheck.conf files in the
package's directory and its parents.`

var Analyzer = &analysis.Analyzer{
	Name:       "bce",
	Doc:        doc,
	Run:        run,
	Requires:   []*analysis.Analyzer{buildssa.Analyzer},
	ResultType: reflect.TypeOf(new(Result)),
}

var (
	reportRemoved bool
	goarch        string
	trace         string
)

func init() {
	Analyzer.Flags.BoolVar(&reportRemoved, "removed", false, "report eliminated bounds checks instead of retained ones")
	Analyzer.Flags.StringVar(&goarch, "goarch", "", "use the type sizes of `arch`, overriding the configuration")
	Analyzer.Flags.StringVar(&trace, "trace", "", "write an analysis trace of functions matching `pattern` to standard error")
}

// Result holds the decisions made for every analysed function of a
// package.
type Result struct {
	Decisions map[*ssa.Function][]rangecheck.Decision
}

var traceMu sync.Mutex

func run(pass *analysis.Pass) (interface{}, error) {
	res := &Result{Decisions: map[*ssa.Function][]rangecheck.Decision{}}
	if len(pass.Files) == 0 {
		return res, nil
	}
	dir := filepath.Dir(pass.Fset.PositionFor(pass.Files[0].Pos(), false).Filename)
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	rc := cfg.RangeCheck
	if goarch != "" {
		rc.GOARCH = goarch
	}
	sizes := pass.TypesSizes
	if rc.GOARCH != "" {
		sizes = types.SizesFor("gc", rc.GOARCH)
		if sizes == nil {
			return nil, fmt.Errorf("unknown architecture %q", rc.GOARCH)
		}
	}
	removed := reportRemoved || rc.ReportEliminated

	ssapkg := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	for _, sfn := range ssapkg.SrcFuncs {
		if rc.Ignored(sfn.Name()) || rc.Ignored(sfn.String()) {
			continue
		}
		fn := irgen.Function(sfn, sizes)
		if fn == nil || len(fn.Checks) == 0 {
			continue
		}
		opts := rc.Options()
		var buf *bytes.Buffer
		if matchTrace(sfn) {
			buf = &bytes.Buffer{}
			opts.Trace = buf
		}
		decisions := rangecheck.OptimizeRangeChecks(fn, opts)
		if buf != nil {
			traceMu.Lock()
			fmt.Fprintf(os.Stderr, "%s\n%s", fn, buf)
			traceMu.Unlock()
		}
		res.Decisions[sfn] = decisions

		for _, d := range decisions {
			if d.Eliminated != removed || !d.Check.Pos.IsValid() {
				continue
			}
			if d.Eliminated {
				pass.Reportf(d.Check.Pos, "bounds check eliminated: %s", d.Reason)
			} else {
				pass.Reportf(d.Check.Pos, "bounds check retained: %s", d.Reason)
			}
		}
	}
	return res, nil
}

func matchTrace(fn *ssa.Function) bool {
	if trace == "" {
		return false
	}
	if ok, _ := path.Match(trace, fn.Name()); ok {
		return true
	}
	ok, _ := path.Match(trace, fn.String())
	return ok
}
