package ir

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/container/intsets"
)

type pendingFact struct {
	edge  Edge // To is NoBlock for block facts
	block BlockID
	fact  Fact
}

// A Builder constructs a Function. Malformed input, such as defining an
// SSA name twice, is a programming error and causes a panic.
type Builder struct {
	fn    *Function
	facts []pendingFact
	done  bool
}

func NewBuilder(name string) *Builder {
	return &Builder{
		fn: &Function{
			Name:       name,
			defs:       map[SSAName]Def{},
			blockFacts: map[BlockID]*intsets.Sparse{},
			edgeFacts:  map[Edge]*intsets.Sparse{},
		},
	}
}

func (b *Builder) checkOpen() {
	if b.done {
		panic("ir: Builder used after Finish")
	}
}

func (b *Builder) Block(comment string) BlockID {
	b.checkOpen()
	id := BlockID(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, &Block{ID: id, Comment: comment})
	return id
}

// Edge adds a control flow edge. The order of calls determines the order of
// predecessors and successors.
func (b *Builder) Edge(from, to BlockID) {
	b.checkOpen()
	b.fn.Blocks[from].Succs = append(b.fn.Blocks[from].Succs, to)
	b.fn.Blocks[to].Preds = append(b.fn.Blocks[to].Preds, from)
}

func (b *Builder) Local(name string, typ Type) LocalID {
	b.checkOpen()
	b.fn.Locals = append(b.fn.Locals, Local{Name: name, Type: typ})
	return LocalID(len(b.fn.Locals) - 1)
}

func (b *Builder) expr(e Expr) ExprID {
	b.checkOpen()
	b.fn.exprs = append(b.fn.exprs, e)
	return ExprID(len(b.fn.exprs) - 1)
}

func (b *Builder) Const(typ Type, v int64) ExprID {
	return b.expr(Expr{Op: OpConst, Type: typ, Value: v, X: NoExpr, Y: NoExpr})
}

// Int returns a 32-bit integer constant.
func (b *Builder) Int(v int32) ExprID {
	return b.Const(TypeInt, int64(v))
}

// Use returns a new use of an SSA name.
func (b *Builder) Use(local LocalID, version int32) ExprID {
	return b.expr(Expr{
		Op:      OpLocal,
		Type:    b.fn.Locals[local].Type,
		Local:   local,
		Version: version,
		X:       NoExpr,
		Y:       NoExpr,
	})
}

func (b *Builder) Add(x, y ExprID) ExprID {
	return b.expr(Expr{Op: OpAdd, Type: b.fn.exprs[x].Type, X: x, Y: y})
}

func (b *Builder) Phi(typ Type, edges ...PhiEdge) ExprID {
	return b.expr(Expr{Op: OpPhi, Type: typ, Edges: edges, X: NoExpr, Y: NoExpr})
}

func (b *Builder) ArrLen(arr ExprID) ExprID {
	return b.expr(Expr{Op: OpArrLen, Type: TypeInt, X: arr, Y: NoExpr})
}

// LongArrLen is like ArrLen, for targets where lengths are 64 bits wide.
func (b *Builder) LongArrLen(arr ExprID) ExprID {
	return b.expr(Expr{Op: OpArrLen, Type: TypeLong, X: arr, Y: NoExpr})
}

func (b *Builder) Load(typ Type, addr ExprID) ExprID {
	return b.expr(Expr{Op: OpLoad, Type: typ, X: addr, Y: NoExpr})
}

func (b *Builder) NewArray(length ExprID) ExprID {
	return b.expr(Expr{Op: OpNewArray, Type: TypeRef, X: length, Y: NoExpr})
}

func (b *Builder) Other(typ Type, comment string) ExprID {
	return b.expr(Expr{Op: OpOther, Type: typ, Comment: comment, X: NoExpr, Y: NoExpr})
}

// Def appends the definition local_version = rhs to block.
func (b *Builder) Def(block BlockID, local LocalID, version int32, rhs ExprID) {
	b.checkOpen()
	name := SSAName{local, version}
	if _, ok := b.fn.defs[name]; ok {
		panic(fmt.Sprintf("ir: %s defined twice", b.fn.LocalName(local, version)))
	}
	b.fn.defs[name] = Def{Block: block, RHS: rhs}
	blk := b.fn.Blocks[block]
	blk.Stmts = append(blk.Stmts, &Stmt{Kind: StmtDef, Local: local, Version: version, RHS: rhs})
}

// Eval appends the evaluation of e to block.
func (b *Builder) Eval(block BlockID, e ExprID) {
	b.checkOpen()
	blk := b.fn.Blocks[block]
	blk.Stmts = append(blk.Stmts, &Stmt{Kind: StmtEval, RHS: e})
}

// Check appends a bounds check of index against length to block.
func (b *Builder) Check(block BlockID, index, length ExprID) *BoundsCheck {
	return b.CheckAt(block, index, length, token.NoPos)
}

func (b *Builder) CheckAt(block BlockID, index, length ExprID, pos token.Pos) *BoundsCheck {
	b.checkOpen()
	c := &BoundsCheck{
		ID:     len(b.fn.Checks),
		Block:  block,
		Index:  index,
		Length: length,
		Pos:    pos,
	}
	b.fn.Checks = append(b.fn.Checks, c)
	blk := b.fn.Blocks[block]
	blk.Stmts = append(blk.Stmts, &Stmt{Kind: StmtCheck, RHS: NoExpr, Check: c})
	return c
}

// AssertIn records that f holds on entry to block.
func (b *Builder) AssertIn(block BlockID, f Fact) {
	b.checkOpen()
	b.facts = append(b.facts, pendingFact{edge: Edge{NoBlock, NoBlock}, block: block, fact: f})
}

// AssertOnEdge records that f holds along the edge from -> to.
func (b *Builder) AssertOnEdge(from, to BlockID, f Fact) {
	b.checkOpen()
	b.facts = append(b.facts, pendingFact{edge: Edge{from, to}, block: NoBlock, fact: f})
}

// Finish assigns value numbers, resolves facts into assertions and returns
// the function. Facts that cannot be expressed as assertions, such as
// comparisons against something that isn't an array length, are dropped.
func (b *Builder) Finish() *Function {
	b.checkOpen()
	b.done = true
	fn := b.fn
	fn.number()
	for _, pf := range b.facts {
		a, ok := fn.resolveFact(pf.fact)
		if !ok {
			continue
		}
		idx := fn.addAssertion(a)
		var set *intsets.Sparse
		if pf.block != NoBlock {
			set = fn.blockFacts[pf.block]
			if set == nil {
				set = &intsets.Sparse{}
				fn.blockFacts[pf.block] = set
			}
		} else {
			set = fn.edgeFacts[pf.edge]
			if set == nil {
				set = &intsets.Sparse{}
				fn.edgeFacts[pf.edge] = set
			}
		}
		set.Insert(idx)
	}
	return fn
}
