package hirtest

import (
	"brick/internal/hir"
	"brick/internal/types"
)

// NestedDrops builds
//
//	struct Inner { id: int }   drop: order = order*10 + self.id; counter += 1
//	struct Outer { a, b, c: Inner }   drop: order = order*10 + 9; counter += 1
//	fn main() { let o = Outer{Inner{1}, Inner{2}, Inner{3}}; }
//
// Running main leaves counter == 4 and order == 9123.
func NestedDrops() (*hir.Module, error) {
	b := New("nested")
	inner := b.Struct("Inner", types.Field{Name: "id", Type: b.Int})
	outer := b.Struct("Outer",
		types.Field{Name: "a", Type: inner},
		types.Field{Name: "b", Type: inner},
		types.Field{Name: "c", Type: inner},
	)
	b.Global("counter", 0)
	b.Global("order", 0)

	record := func(digit *hir.Expr) []*hir.Stmt {
		return []*hir.Stmt{
			hir.Assign(b.G("order"), hir.Binary(hir.OpAdd,
				hir.Binary(hir.OpMul, b.G("order"), hir.Lit(b.Int, 10), b.Int), digit, b.Int)),
			Incr(b.G("counter"), 1),
		}
	}
	b.Destructor(inner, "drop_inner", func(self Var) []*hir.Stmt {
		return record(hir.FieldOf(self.Ref(), 0, b.Int))
	})
	b.Destructor(outer, "drop_outer", func(Var) []*hir.Stmt {
		return record(hir.Lit(b.Int, 9))
	})

	mk := func(id int64) *hir.Expr { return hir.StructLit(inner, hir.Lit(b.Int, id)) }
	o := b.Var("o", outer)
	b.Func("main", b.Unit, nil,
		o.Let(hir.StructLit(outer, mk(1), mk(2), mk(3))),
	)
	return b.Build()
}

// Reassign builds
//
//	struct Data { x: int }   drop: self.x += 1; counter += 1
//	fn main() {
//	    let x = Data{x: 0};
//	    { x = Data{x: x.x}; x = Data{x: x.x}; x = Data{x: x.x}; }
//	    while x.x > 0 { iterations += 1; counter += 1; x.x -= 1; }
//	}
//
// Running main leaves counter == 4 and iterations == 0: every reassignment
// drops the old value after the new one was built from it.
func Reassign() (*hir.Module, error) {
	b := New("reassign")
	data := b.Struct("Data", types.Field{Name: "x", Type: b.Int})
	b.Global("counter", 0)
	b.Global("iterations", 0)
	b.Destructor(data, "drop_data", func(self Var) []*hir.Stmt {
		return []*hir.Stmt{
			Incr(hir.FieldOf(self.Ref(), 0, b.Int), 1),
			Incr(b.G("counter"), 1),
		}
	})

	x := b.Var("x", data)
	xx := func() *hir.Expr { return hir.FieldOf(x.Ref(), 0, b.Int) }
	again := func() *hir.Stmt { return hir.Assign(x.Ref(), hir.StructLit(data, xx())) }
	b.Func("main", b.Unit, nil,
		x.Let(hir.StructLit(data, hir.Lit(b.Int, 0))),
		hir.Nested(hir.Blk(again(), again(), again())),
		hir.While(hir.Binary(hir.OpGt, xx(), hir.Lit(b.Int, 0), b.Bool), hir.Blk(
			Incr(b.G("iterations"), 1),
			Incr(b.G("counter"), 1),
			hir.AssignWith(hir.AssignSub, xx(), hir.Lit(b.Int, 1)),
		)),
	)
	return b.Build()
}

// Token is a fieldful Resource used by the checker tests.
type Token struct {
	B *Builder
	// R is a Resource struct { a: Res, b: Res, n: int } with destructor.
	R types.TypeID
	// Res is a fieldless Resource with a destructor.
	Res types.TypeID
}

// NewToken registers the Token types and their destructors plus
// `consume(x: R)`, `consume_res(x: Res)` and `make() -> R`. Every
// destructor bumps the `drops` global.
func NewToken(name string) *Token {
	b := New(name)
	b.Global("drops", 0)
	res := b.Struct("Res")
	r := b.Struct("R",
		types.Field{Name: "a", Type: res},
		types.Field{Name: "b", Type: res},
		types.Field{Name: "n", Type: b.Int},
	)
	b.Destructor(res, "drop_res", func(Var) []*hir.Stmt {
		return []*hir.Stmt{Incr(b.G("drops"), 1)}
	})
	b.Destructor(r, "drop_r", func(Var) []*hir.Stmt {
		return []*hir.Stmt{Incr(b.G("drops"), 1)}
	})
	b.Sink("consume", r)
	b.Sink("consume_res", res)
	b.Func("make", r, nil, hir.Return(hir.StructLit(r, hir.StructLit(res), hir.StructLit(res), hir.Lit(b.Int, 0))))
	return &Token{B: b, R: r, Res: res}
}

// New returns a fresh R literal.
func (t *Token) New() *hir.Expr {
	b := t.B
	return hir.StructLit(t.R, hir.StructLit(t.Res), hir.StructLit(t.Res), hir.Lit(b.Int, 0))
}

// Consume is `consume(e)`.
func (t *Token) Consume(e *hir.Expr) *hir.Stmt {
	return hir.ExprStmt(hir.Call("consume", t.B.Unit, e))
}

// ConsumeRes is `consume_res(e)`.
func (t *Token) ConsumeRes(e *hir.Expr) *hir.Stmt {
	return hir.ExprStmt(hir.Call("consume_res", t.B.Unit, e))
}
