package hir

import (
	"fmt"
	"io"
	"strings"

	"brick/internal/types"
)

// Printer is used to dump HIR to text format. The output is deterministic
// and is what the determinism tests compare.
type Printer struct {
	w        io.Writer
	interner *types.Interner
	indent   int
	err      error

	names map[LocalID]string
	ltype map[LocalID]types.TypeID
}

// NewPrinter creates a new HIR printer.
func NewPrinter(w io.Writer, interner *types.Interner) *Printer {
	return &Printer{w: w, interner: interner}
}

// Dump writes the HIR module to the writer.
func Dump(w io.Writer, m *Module) error {
	return NewPrinter(w, m.Facts()).PrintModule(m)
}

// DumpFunc renders a single function into a string.
func DumpFunc(fn *Func, interner *types.Interner) string {
	var sb strings.Builder
	p := NewPrinter(&sb, interner)
	p.PrintFunc(fn)
	return sb.String()
}

// PrintModule prints a complete module.
func (p *Printer) PrintModule(m *Module) error {
	p.printf("module %s (schema %s)\n", m.Name, m.Version)
	if p.interner != nil {
		for i := 1; i <= p.interner.Len(); i++ {
			id := types.TypeID(i) //nolint:gosec // bounded by interner length
			t, _ := p.interner.Lookup(id)
			if t.Kind != types.KindStruct && t.Kind != types.KindUnion {
				continue
			}
			p.printf("type %s %s", t.Name, t.Kind)
			if p.interner.IsResource(id) {
				p.printf(" resource")
			}
			if t.Destructor != "" {
				p.printf(" drop=%s", t.Destructor)
			}
			p.printf(" {")
			for j, f := range t.Fields {
				if j > 0 {
					p.printf(",")
				}
				p.printf(" %s: %s", f.Name, p.typeStr(f.Type))
			}
			p.printf(" }\n")
		}
	}
	for _, g := range m.Globals {
		p.printf("global %s: %s = %d\n", g.Name, p.typeStr(g.Type), g.Init)
	}
	for _, fn := range m.Funcs {
		p.printf("\n")
		p.PrintFunc(fn)
	}
	return p.err
}

// PrintFunc prints a function and its annotations.
func (p *Printer) PrintFunc(fn *Func) {
	p.names = make(map[LocalID]string)
	p.ltype = make(map[LocalID]types.TypeID)
	for _, l := range fn.Locals() {
		p.names[l.ID] = l.Name
		p.ltype[l.ID] = l.Type
	}
	p.printf("fn %s(", fn.Name)
	for i, prm := range fn.Params {
		if i > 0 {
			p.printf(", ")
		}
		p.printf("%s: %s", p.localName(prm.Local), p.typeStr(prm.Type))
	}
	p.printf(")")
	if fn.Result != types.NoTypeID {
		p.printf(" -> %s", p.typeStr(fn.Result))
	}
	if fn.Flags != 0 {
		p.printf(" %s", fn.Flags)
	}
	p.printf(" ")
	p.printBlock(fn.Body)
	p.printf("\n")
}

func (p *Printer) printBlock(b *Block) {
	p.printf("{\n")
	p.indent++
	if b != nil {
		for _, s := range b.Stmts {
			p.printStmt(s)
		}
	}
	p.indent--
	p.writeIndent()
	p.printf("}")
}

func (p *Printer) printStmt(s *Stmt) {
	p.writeIndent()
	p.printStmtHead(s)
	p.printf("\n")
	switch s.Kind {
	case StmtAssign:
		p.printDrops("before store", s.Drops)
	case StmtReturn:
		p.printDrops("after value", s.Drops)
	case StmtExpr:
		p.printDrops("discard", s.Drops)
	case StmtWhile, StmtFor:
		p.printDrops("on exit", s.ExitDrops)
		p.printDrops("on back edge", s.BackDrops)
	}
}

func (p *Printer) printStmtHead(s *Stmt) {
	switch s.Kind {
	case StmtLet:
		p.printf("let %s: %s", p.localName(s.Local), p.typeStr(s.Type))
		if s.Value != nil {
			p.printf(" = ")
			p.printExpr(s.Value)
		}
	case StmtAssign:
		p.printExpr(s.Target)
		p.printf(" %s ", s.Op)
		p.printExpr(s.Value)
	case StmtExpr:
		p.printExpr(s.Value)
	case StmtReturn:
		p.printf("return")
		if s.Value != nil {
			p.printf(" ")
			p.printExpr(s.Value)
		}
	case StmtBreak, StmtContinue:
		p.printf("%s", s.Kind)
	case StmtIf:
		p.printf("if ")
		p.printExpr(s.Cond)
		p.printf(" ")
		p.printBlock(s.Then)
		if s.Else != nil {
			p.printf(" else ")
			p.printBlock(s.Else)
		}
	case StmtWhile:
		p.printf("while ")
		p.printExpr(s.Cond)
		p.printf(" ")
		p.printBlock(s.Body)
	case StmtFor:
		p.printf("for ")
		if s.Init != nil {
			p.printStmtHead(s.Init)
		}
		p.printf("; ")
		if s.Cond != nil {
			p.printExpr(s.Cond)
		}
		p.printf("; ")
		if s.Post != nil {
			p.printStmtHead(s.Post)
		}
		p.printf(" ")
		p.printBlock(s.Body)
	case StmtBlock:
		p.printBlock(s.Body)
	case StmtDrop:
		for i, d := range s.Drops {
			if i > 0 {
				p.printf("\n")
				p.writeIndent()
			}
			p.printDrop(d)
		}
	}
}

func (p *Printer) printDrops(label string, drops []Drop) {
	if len(drops) == 0 {
		return
	}
	p.indent++
	for _, d := range drops {
		p.writeIndent()
		p.printf("(%s) ", label)
		p.printDrop(d)
		p.printf("\n")
	}
	p.indent--
}

func (p *Printer) printDrop(d Drop) {
	p.printf("drop %s [%s", p.placeStr(d.Place, d.Type), d.Reason)
	if d.Partial {
		p.printf(", partial")
	}
	p.printf("] {")
	p.printOps(d.Ops, d)
	p.printf(" }")
}

func (p *Printer) printOps(ops []DropOp, d Drop) {
	for i, op := range ops {
		if i > 0 {
			p.printf(";")
		}
		switch op.Kind {
		case DropOpDestructor:
			p.printf(" %s(%s)", op.Func, p.placeStr(op.Place, d.Type))
		case DropOpVariant:
			p.printf(" switch %s {", p.placeStr(op.Place, d.Type))
			for j, c := range op.Cases {
				if j > 0 {
					p.printf(",")
				}
				p.printf(" %d =>", c.Variant)
				p.printOps(c.Ops, d)
			}
			p.printf(" }")
		}
	}
}

// placeStr renders pl. Temporaries take tempType as their root type.
func (p *Printer) placeStr(pl Place, tempType types.TypeID) string {
	var sb strings.Builder
	var ty types.TypeID
	switch pl.Root {
	case RootTemp:
		sb.WriteString("$tmp")
		ty = tempType
	default:
		ty = p.ltype[pl.Local]
		if pl.Deref {
			sb.WriteString("*")
			ty = p.elem(ty)
		}
		sb.WriteString(p.localName(pl.Local))
	}
	for _, pr := range pl.Proj {
		f, ok := types.Field{}, false
		if p.interner != nil {
			f, ok = p.interner.Field(ty, pr.Index)
		}
		switch {
		case !ok:
			fmt.Fprintf(&sb, ".%d", pr.Index)
			ty = types.NoTypeID
		case pr.Kind == ProjVariant:
			fmt.Fprintf(&sb, " as %s", f.Name)
			ty = f.Type
		default:
			fmt.Fprintf(&sb, ".%s", f.Name)
			ty = f.Type
		}
	}
	return sb.String()
}

func (p *Printer) printExpr(e *Expr) {
	if e == nil {
		p.printf("<nil>")
		return
	}
	switch e.Access {
	case AccessCopy, AccessMove:
		p.printf("%s ", e.Access)
	}
	p.printExprBare(e)
}

func (p *Printer) printExprBare(e *Expr) {
	switch e.Kind {
	case ExprLit:
		if t, ok := p.lookup(e.Type); ok && t.Kind == types.KindBool {
			p.printf("%t", e.Value != 0)
			return
		}
		if t, ok := p.lookup(e.Type); ok && t.Kind == types.KindUnit {
			p.printf("()")
			return
		}
		p.printf("%d", e.Value)
	case ExprLocal:
		p.printf("%s", p.localName(e.Local))
	case ExprGlobal:
		p.printf("%s", e.Name)
	case ExprField:
		p.printExprBare(e.X)
		p.printf(".%s", p.fieldName(e.X.Type, e.Index))
	case ExprDeref:
		p.printf("*")
		p.printExprBare(e.X)
	case ExprStruct:
		p.printf("%s{", p.typeStr(e.Type))
		for i, a := range e.Args {
			if i > 0 {
				p.printf(", ")
			}
			p.printf("%s: ", p.fieldName(e.Type, i))
			p.printExpr(a)
		}
		p.printf("}")
	case ExprUnion:
		p.printf("%s.%s(", p.typeStr(e.Type), p.fieldName(e.Type, e.Index))
		if e.X != nil {
			p.printExpr(e.X)
		}
		p.printf(")")
	case ExprCall:
		p.printf("%s(", e.Name)
		if e.X != nil {
			p.printf("%s self: ", e.Recv)
			if e.X.Access == AccessShared || e.X.Access == AccessUnique {
				p.printf("%s ", e.X.Access)
				p.printExprBare(e.X)
			} else {
				p.printExpr(e.X)
			}
			if len(e.Args) > 0 {
				p.printf(", ")
			}
		}
		for i, a := range e.Args {
			if i > 0 {
				p.printf(", ")
			}
			p.printExpr(a)
		}
		p.printf(")")
	case ExprRef:
		if e.Unique {
			p.printf("unique ")
		} else {
			p.printf("ref ")
		}
		p.printExprBare(e.X)
	case ExprUnary:
		if e.Op == OpNeg {
			p.printf("-")
		} else {
			p.printf("%s", e.Op)
		}
		p.printExpr(e.X)
	case ExprBinary:
		p.printf("(")
		p.printExpr(e.X)
		p.printf(" %s ", e.Op)
		p.printExpr(e.Y)
		p.printf(")")
	default:
		p.printf("<%s>", e.Kind)
	}
}

func (p *Printer) localName(id LocalID) string {
	if name, ok := p.names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("_%d", id)
}

func (p *Printer) lookup(id types.TypeID) (types.Type, bool) {
	if p.interner == nil {
		return types.Type{}, false
	}
	return p.interner.Lookup(id)
}

func (p *Printer) elem(id types.TypeID) types.TypeID {
	if p.interner == nil {
		return types.NoTypeID
	}
	return p.interner.Elem(id)
}

func (p *Printer) fieldName(ty types.TypeID, i int) string {
	if p.interner != nil {
		if p.interner.IsReference(ty) {
			ty = p.interner.Elem(ty)
		}
		if f, ok := p.interner.Field(ty, i); ok {
			return f.Name
		}
	}
	return fmt.Sprintf("%d", i)
}

func (p *Printer) typeStr(id types.TypeID) string {
	if p.interner == nil {
		return fmt.Sprintf("type#%d", id)
	}
	return p.interner.Name(id)
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) writeIndent() {
	p.printf("%s", strings.Repeat("  ", p.indent))
}
