package hir

import "brick/internal/types"

// Constructors used by IR producers and tests. Spans are left empty; see
// FillSpans.

func Lit(ty types.TypeID, v int64) *Expr {
	return &Expr{Kind: ExprLit, Type: ty, Value: v}
}

func LocalRef(id LocalID, ty types.TypeID) *Expr {
	return &Expr{Kind: ExprLocal, Type: ty, Local: id}
}

func GlobalRef(name string, ty types.TypeID) *Expr {
	return &Expr{Kind: ExprGlobal, Type: ty, Name: name}
}

func FieldOf(base *Expr, index int, ty types.TypeID) *Expr {
	return &Expr{Kind: ExprField, Type: ty, X: base, Index: index}
}

func Deref(ref *Expr, ty types.TypeID) *Expr {
	return &Expr{Kind: ExprDeref, Type: ty, X: ref}
}

func StructLit(ty types.TypeID, fields ...*Expr) *Expr {
	return &Expr{Kind: ExprStruct, Type: ty, Args: fields}
}

func UnionLit(ty types.TypeID, variant int, payload *Expr) *Expr {
	return &Expr{Kind: ExprUnion, Type: ty, Index: variant, X: payload}
}

func Call(name string, ty types.TypeID, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Type: ty, Name: name, Args: args}
}

func MethodCall(name string, ty types.TypeID, recv *Expr, mode ReceiverMode, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Type: ty, Name: name, X: recv, Recv: mode, Args: args}
}

func Borrow(target *Expr, unique bool, ty types.TypeID) *Expr {
	return &Expr{Kind: ExprRef, Type: ty, X: target, Unique: unique}
}

func Unary(op Op, x *Expr, ty types.TypeID) *Expr {
	return &Expr{Kind: ExprUnary, Type: ty, Op: op, X: x}
}

func Binary(op Op, x, y *Expr, ty types.TypeID) *Expr {
	return &Expr{Kind: ExprBinary, Type: ty, Op: op, X: x, Y: y}
}

func Let(id LocalID, name string, ty types.TypeID, init *Expr) *Stmt {
	return &Stmt{Kind: StmtLet, Local: id, Name: name, Type: ty, Value: init}
}

func Assign(target, value *Expr) *Stmt {
	return &Stmt{Kind: StmtAssign, Target: target, Value: value}
}

func AssignWith(op AssignOp, target, value *Expr) *Stmt {
	return &Stmt{Kind: StmtAssign, Op: op, Target: target, Value: value}
}

func ExprStmt(e *Expr) *Stmt {
	return &Stmt{Kind: StmtExpr, Value: e}
}

func If(cond *Expr, then, els *Block) *Stmt {
	return &Stmt{Kind: StmtIf, Cond: cond, Then: then, Else: els}
}

func While(cond *Expr, body *Block) *Stmt {
	return &Stmt{Kind: StmtWhile, Cond: cond, Body: body}
}

func For(init *Stmt, cond *Expr, post *Stmt, body *Block) *Stmt {
	return &Stmt{Kind: StmtFor, Init: init, Cond: cond, Post: post, Body: body}
}

func Break() *Stmt    { return &Stmt{Kind: StmtBreak} }
func Continue() *Stmt { return &Stmt{Kind: StmtContinue} }

func Return(v *Expr) *Stmt {
	return &Stmt{Kind: StmtReturn, Value: v}
}

func Nested(b *Block) *Stmt {
	return &Stmt{Kind: StmtBlock, Body: b}
}

func Blk(stmts ...*Stmt) *Block {
	return &Block{Stmts: stmts}
}
