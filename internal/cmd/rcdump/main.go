// rcdump runs bounds-check elimination on IR fixtures or Go files and
// prints the IR before and after, together with the decision for every
// bounds check.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/tools/go/ssa"
	"honnef.co/go/rangecheck/debug"
	"honnef.co/go/rangecheck/go/ir"
	"honnef.co/go/rangecheck/go/ir/irfile"
	"honnef.co/go/rangecheck/go/irgen"
	"honnef.co/go/rangecheck/rangecheck"
)

// flags
var (
	trace  bool
	budget int
	depth  int
)

func init() {
	flag.BoolVar(&trace, "trace", false, "Print a trace of the range computation")
	flag.IntVar(&budget, "budget", rangecheck.DefaultBudget, "Node visit budget per function")
	flag.IntVar(&depth, "depth", rangecheck.DefaultMaxSearchDepth, "Maximum search depth")
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("rcdump: ")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: rcdump [flags] file.yaml|file.go...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	opts := rangecheck.Options{Budget: budget, MaxSearchDepth: depth}
	if trace {
		opts.Trace = os.Stdout
	}
	for _, path := range flag.Args() {
		fns, err := load(path)
		if err != nil {
			log.Fatal(err)
		}
		for _, fn := range fns {
			dump(os.Stdout, fn, opts)
		}
	}
}

func load(path string) ([]*ir.Function, error) {
	if filepath.Ext(path) != ".go" {
		f, err := irfile.ReadFile(path)
		if err != nil {
			return nil, err
		}
		fn, _, err := f.Build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []*ir.Function{fn}, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pkg, err := debug.BuildSSA(string(src), debug.Sizes32)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var names []string
	for name, m := range pkg.Members {
		if _, ok := m.(*ssa.Function); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var out []*ir.Function
	for _, name := range names {
		if fn := irgen.Function(pkg.Func(name), debug.Sizes32); fn != nil && len(fn.Checks) > 0 {
			out = append(out, fn)
		}
	}
	return out, nil
}

func dump(w io.Writer, fn *ir.Function, opts rangecheck.Options) {
	ir.WriteFunction(w, fn)
	fmt.Fprintln(w)
	e := rangecheck.New(fn, opts)
	for _, d := range e.OptimizeRangeChecks() {
		fmt.Fprintf(w, "%s: %s\n", fn.CheckString(d.Check), d)
	}
	stats := e.Stats()
	fmt.Fprintf(w, "%d of %d checks eliminated, %d nodes visited\n\n", stats.Eliminated, stats.Sites, stats.Visited)
	ir.WriteFunction(w, fn)
	fmt.Fprintln(w)
}
