// Package debug contains helpers for testing and debugging the analysis
// on Go source code.
package debug

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// Sizes32 are the type sizes of a 32-bit target, on which int is
// represented with 32 bits.
var Sizes32 = types.SizesFor("gc", "386")

// TypeCheck parses and type-checks a single-file Go package from a string.
func TypeCheck(fset *token.FileSet, src string, sizes types.Sizes) (*ast.File, *types.Package, *types.Info, error) {
	f, err := parser.ParseFile(fset, "foo.go", src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, nil, nil, err
	}
	pkg := types.NewPackage("foo", f.Name.Name)
	info := &types.Info{
		Types:      map[ast.Expr]types.TypeAndValue{},
		Defs:       map[*ast.Ident]types.Object{},
		Uses:       map[*ast.Ident]types.Object{},
		Implicits:  map[ast.Node]types.Object{},
		Selections: map[*ast.SelectorExpr]*types.Selection{},
		Scopes:     map[ast.Node]*types.Scope{},
		InitOrder:  []*types.Initializer{},
		Instances:  map[*ast.Ident]types.Instance{},
	}
	tcfg := &types.Config{
		Importer: importer.Default(),
		Sizes:    sizes,
	}
	if err := types.NewChecker(tcfg, fset, pkg, info).Files([]*ast.File{f}); err != nil {
		return nil, nil, nil, err
	}
	return f, pkg, info, nil
}

// BuildSSA parses, type-checks and builds the SSA form of a single-file Go
// package from a string.
func BuildSSA(src string, sizes types.Sizes) (*ssa.Package, error) {
	fset := token.NewFileSet()
	f, pkg, info, err := TypeCheck(fset, src, sizes)
	if err != nil {
		return nil, fmt.Errorf("type-checking: %w", err)
	}
	prog := ssa.NewProgram(fset, ssa.SanityCheckFunctions)

	// Imported packages only need their members, not their code.
	created := map[*types.Package]bool{}
	var createAll func(pkgs []*types.Package)
	createAll = func(pkgs []*types.Package) {
		for _, p := range pkgs {
			if !created[p] {
				created[p] = true
				prog.CreatePackage(p, nil, nil, true)
				createAll(p.Imports())
			}
		}
	}
	createAll(pkg.Imports())

	spkg := prog.CreatePackage(pkg, []*ast.File{f}, info, false)
	spkg.Build()
	return spkg, nil
}
