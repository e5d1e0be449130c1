package ir

import (
	"math"

	"honnef.co/go/rangecheck/internal/checked"
)

type vnKind uint8

const (
	vnConst vnKind = iota
	vnArrLen
	vnAdd
	vnNewArray
	vnOpaque
)

type vnKey struct {
	kind  vnKind
	typ   Type
	value int64
	x, y  ValueNum
	// id keeps opaque values apart; it is zero for everything that is
	// hash-consed.
	id int32
}

// valueNumbering assigns value numbers by hash-consing expression shapes.
// Uses of a local share the number of the local's definition; φs, loads and
// everything else that isn't understood get a fresh number per occurrence.
type valueNumbering struct {
	keys   []vnKey
	table  map[vnKey]ValueNum
	exprs  []ValueNum
	names  map[SSAName]ValueNum
	active map[SSAName]bool
	nextID int32
}

func (vn *valueNumbering) intern(key vnKey) ValueNum {
	if n, ok := vn.table[key]; ok {
		return n
	}
	n := ValueNum(len(vn.keys))
	vn.keys = append(vn.keys, key)
	vn.table[key] = n
	return n
}

func (vn *valueNumbering) opaque(kind vnKind, x ValueNum) ValueNum {
	vn.nextID++
	return vn.intern(vnKey{kind: kind, x: x, id: vn.nextID})
}

func (fn *Function) number() {
	vn := &valueNumbering{
		table:  map[vnKey]ValueNum{},
		exprs:  make([]ValueNum, len(fn.exprs)),
		names:  map[SSAName]ValueNum{},
		active: map[SSAName]bool{},
	}
	for i := range vn.exprs {
		vn.exprs[i] = NoVN
	}
	fn.vn = vn
	for id := range fn.exprs {
		fn.numberExpr(ExprID(id))
	}
}

func (fn *Function) numberExpr(id ExprID) ValueNum {
	vn := fn.vn
	if n := vn.exprs[id]; n != NoVN {
		return n
	}
	e := &fn.exprs[id]
	var n ValueNum
	switch e.Op {
	case OpConst:
		n = vn.intern(vnKey{kind: vnConst, typ: e.Type, value: e.Value})
	case OpLocal:
		n = fn.numberName(SSAName{e.Local, e.Version})
	case OpArrLen:
		n = vn.intern(vnKey{kind: vnArrLen, x: fn.numberExpr(e.X)})
	case OpAdd:
		x := fn.numberExpr(e.X)
		y := fn.numberExpr(e.Y)
		kx, ky := vn.keys[x], vn.keys[y]
		if kx.kind == vnConst && ky.kind == vnConst && (e.Type == TypeInt || e.Type == TypeLong) {
			sum, of := checked.Add(kx.value, ky.value)
			if !of && (e.Type == TypeLong || sum >= math.MinInt32 && sum <= math.MaxInt32) {
				n = vn.intern(vnKey{kind: vnConst, typ: e.Type, value: sum})
				break
			}
		}
		if x > y {
			x, y = y, x
		}
		n = vn.intern(vnKey{kind: vnAdd, typ: e.Type, x: x, y: y})
	case OpNewArray:
		n = vn.opaque(vnNewArray, fn.numberExpr(e.X))
	default:
		n = vn.opaque(vnOpaque, NoVN)
	}
	vn.exprs[id] = n
	return n
}

func (fn *Function) numberName(name SSAName) ValueNum {
	vn := fn.vn
	if n, ok := vn.names[name]; ok {
		return n
	}
	if vn.active[name] {
		// A definition that depends on itself without going through a φ.
		return vn.opaque(vnOpaque, NoVN)
	}
	var n ValueNum
	if def, ok := fn.defs[name]; ok {
		vn.active[name] = true
		n = fn.numberExpr(def.RHS)
		delete(vn.active, name)
	} else {
		n = vn.opaque(vnOpaque, NoVN)
	}
	vn.names[name] = n
	return n
}

// VN returns the value number of an expression.
func (fn *Function) VN(id ExprID) ValueNum {
	if fn.vn == nil || id < 0 || int(id) >= len(fn.vn.exprs) {
		return NoVN
	}
	return fn.vn.exprs[id]
}

func (fn *Function) key(n ValueNum) (vnKey, bool) {
	if fn.vn == nil || n < 0 || int(n) >= len(fn.vn.keys) {
		return vnKey{}, false
	}
	return fn.vn.keys[n], true
}

// ConstantValue reports whether n is the value number of an integer
// constant.
func (fn *Function) ConstantValue(n ValueNum) (int64, Type, bool) {
	key, ok := fn.key(n)
	if !ok || key.kind != vnConst {
		return 0, 0, false
	}
	return key.value, key.typ, true
}

// IsArrLen reports whether n is the value number of the length of an array.
func (fn *Function) IsArrLen(n ValueNum) bool {
	key, ok := fn.key(n)
	return ok && key.kind == vnArrLen
}

// ArrOfLen returns the value number of the array whose length n is.
func (fn *Function) ArrOfLen(n ValueNum) ValueNum {
	key, ok := fn.key(n)
	if !ok || key.kind != vnArrLen {
		return NoVN
	}
	return key.x
}

// NewArraySize returns the statically known length of an array, which is
// the case for arrays allocated with a constant length.
func (fn *Function) NewArraySize(arr ValueNum) (int32, bool) {
	key, ok := fn.key(arr)
	if !ok || key.kind != vnNewArray {
		return 0, false
	}
	v, _, ok := fn.ConstantValue(key.x)
	if !ok || v < 0 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}
