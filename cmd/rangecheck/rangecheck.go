// rangecheck reports the bounds checks in Go code that range propagation
// cannot prove redundant.
package main // import "honnef.co/go/rangecheck/cmd/rangecheck"

import (
	"os"

	"golang.org/x/tools/go/analysis/singlechecker"
	"honnef.co/go/rangecheck/analysis/bce"
	"honnef.co/go/rangecheck/version"
)

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-version", "--version":
			version.Print(os.Stdout)
			os.Exit(0)
		case "-debug.version":
			version.Verbose(os.Stdout)
			os.Exit(0)
		}
	}
	singlechecker.Main(bce.Analyzer)
}
