package hir

import (
	"errors"
	"fmt"

	"brick/internal/types"
)

// ErrMalformed reports IR that violates structural invariants the checker
// relies on. Ownership mistakes are diagnostics, never ErrMalformed.
var ErrMalformed = errors.New("malformed IR")

// Validate checks module-wide structure: bound types, callee existence and
// arity, local declaration before use, loop-only break/continue, field
// indices and destructor signatures.
func Validate(m *Module) error {
	if m == nil {
		return fmt.Errorf("%w: nil module", ErrMalformed)
	}
	if m.facts == nil {
		if err := m.Bind(); err != nil {
			return err
		}
	}
	v := validator{m: m, facts: m.facts}
	seen := make(map[string]struct{}, len(m.Funcs))
	for _, fn := range m.Funcs {
		if fn == nil {
			return v.errorf("nil function")
		}
		if _, dup := seen[fn.Name]; dup {
			return v.errorf("duplicate function %q", fn.Name)
		}
		seen[fn.Name] = struct{}{}
	}
	for _, g := range m.Globals {
		t, ok := m.facts.Lookup(g.Type)
		if !ok || (t.Kind != types.KindInt && t.Kind != types.KindBool) {
			return v.errorf("global %q must be int or bool", g.Name)
		}
	}
	for id := types.TypeID(1); int(id) <= m.facts.Len(); id++ {
		if err := v.checkDestructorOf(id); err != nil {
			return err
		}
	}
	for _, fn := range m.Funcs {
		if err := v.checkFunc(fn); err != nil {
			return fmt.Errorf("func %s: %w", fn.Name, err)
		}
	}
	return nil
}

type validator struct {
	m      *Module
	facts  *types.Interner
	scopes []map[LocalID]struct{}
	loops  int
	all    map[LocalID]struct{}
}

func (v *validator) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func (v *validator) checkDestructorOf(id types.TypeID) error {
	name := v.facts.Destructor(id)
	if name == "" {
		return nil
	}
	fn := v.m.Func(name)
	if fn == nil {
		return v.errorf("destructor %q of %s is not defined", name, v.facts.Name(id))
	}
	if !fn.IsDestructor() {
		return v.errorf("function %q is not flagged as a destructor", name)
	}
	if len(fn.Params) != 1 || !v.facts.IsUniqueReference(fn.Params[0].Type) || v.facts.Elem(fn.Params[0].Type) != id {
		return v.errorf("destructor %q must take exactly `self: unique ref %s`", name, v.facts.Name(id))
	}
	return nil
}

func (v *validator) checkFunc(fn *Func) error {
	if fn.Body == nil {
		return v.errorf("missing body")
	}
	v.scopes = v.scopes[:0]
	v.loops = 0
	v.all = make(map[LocalID]struct{})
	v.push()
	for _, p := range fn.Params {
		if err := v.declare(p.Local, p.Type); err != nil {
			return err
		}
	}
	return v.checkBlock(fn.Body, false)
}

func (v *validator) push() { v.scopes = append(v.scopes, make(map[LocalID]struct{})) }
func (v *validator) pop()  { v.scopes = v.scopes[:len(v.scopes)-1] }

func (v *validator) declare(id LocalID, ty types.TypeID) error {
	if !id.IsValid() {
		return v.errorf("local id 0 is reserved")
	}
	if _, dup := v.all[id]; dup {
		return v.errorf("local %d declared twice", id)
	}
	if _, ok := v.facts.Lookup(ty); !ok {
		return v.errorf("local %d has unknown type %d", id, ty)
	}
	v.all[id] = struct{}{}
	v.scopes[len(v.scopes)-1][id] = struct{}{}
	return nil
}

func (v *validator) visible(id LocalID) bool {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if _, ok := v.scopes[i][id]; ok {
			return true
		}
	}
	return false
}

func (v *validator) checkBlock(b *Block, scoped bool) error {
	if b == nil {
		return v.errorf("missing block")
	}
	if scoped {
		v.push()
		defer v.pop()
	}
	for _, s := range b.Stmts {
		if err := v.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) checkStmt(s *Stmt) error {
	if s == nil {
		return v.errorf("nil statement")
	}
	switch s.Kind {
	case StmtLet:
		if s.Value != nil {
			if err := v.checkExpr(s.Value); err != nil {
				return err
			}
		}
		return v.declare(s.Local, s.Type)
	case StmtAssign:
		if s.Target == nil || s.Value == nil {
			return v.errorf("assignment needs target and value")
		}
		if err := v.checkExpr(s.Value); err != nil {
			return err
		}
		return v.checkExpr(s.Target)
	case StmtExpr:
		if s.Value == nil {
			return v.errorf("expression statement without expression")
		}
		return v.checkExpr(s.Value)
	case StmtReturn:
		if s.Value != nil {
			return v.checkExpr(s.Value)
		}
	case StmtBreak, StmtContinue:
		if v.loops == 0 {
			return v.errorf("%s outside of a loop", s.Kind)
		}
	case StmtIf:
		if err := v.checkExpr(s.Cond); err != nil {
			return err
		}
		if err := v.checkBlock(s.Then, true); err != nil {
			return err
		}
		if s.Else != nil {
			return v.checkBlock(s.Else, true)
		}
	case StmtWhile:
		if err := v.checkExpr(s.Cond); err != nil {
			return err
		}
		v.loops++
		defer func() { v.loops-- }()
		return v.checkBlock(s.Body, true)
	case StmtFor:
		v.push()
		defer v.pop()
		if s.Init != nil {
			if s.Init.IsLoop() || s.Init.Kind == StmtBreak || s.Init.Kind == StmtContinue || s.Init.Kind == StmtReturn {
				return v.errorf("for-loop init must be a simple statement")
			}
			if err := v.checkStmt(s.Init); err != nil {
				return err
			}
		}
		if s.Cond != nil {
			if err := v.checkExpr(s.Cond); err != nil {
				return err
			}
		}
		v.loops++
		defer func() { v.loops-- }()
		if err := v.checkBlock(s.Body, true); err != nil {
			return err
		}
		if s.Post != nil {
			if s.Post.Kind != StmtAssign && s.Post.Kind != StmtExpr {
				return v.errorf("for-loop post must be an assignment or expression")
			}
			return v.checkStmt(s.Post)
		}
	case StmtBlock:
		return v.checkBlock(s.Body, true)
	case StmtDrop:
	default:
		return v.errorf("unknown statement kind %d", s.Kind)
	}
	return nil
}

func (v *validator) checkExpr(e *Expr) error {
	if e == nil {
		return v.errorf("missing expression")
	}
	if _, ok := v.facts.Lookup(e.Type); !ok {
		return v.errorf("%s expression has unknown type %d", e.Kind, e.Type)
	}
	switch e.Kind {
	case ExprLit:
	case ExprLocal:
		if !v.visible(e.Local) {
			return v.errorf("local %d used outside of its scope", e.Local)
		}
	case ExprGlobal:
		if _, ok := v.m.Global(e.Name); !ok {
			return v.errorf("unknown global %q", e.Name)
		}
	case ExprField:
		if err := v.checkExpr(e.X); err != nil {
			return err
		}
		base := e.X.Type
		if v.facts.IsReference(base) {
			base = v.facts.Elem(base)
		}
		t, _ := v.facts.Lookup(base)
		if t.Kind != types.KindStruct {
			return v.errorf("field access on non-struct %s", v.facts.Name(e.X.Type))
		}
		if e.Index < 0 || e.Index >= len(t.Fields) {
			return v.errorf("field index %d out of range for %s", e.Index, t.Name)
		}
	case ExprDeref:
		if err := v.checkExpr(e.X); err != nil {
			return err
		}
		if !v.facts.IsReference(e.X.Type) {
			return v.errorf("dereference of non-reference %s", v.facts.Name(e.X.Type))
		}
	case ExprStruct:
		fields := v.facts.Fields(e.Type)
		if len(fields) != len(e.Args) {
			return v.errorf("struct literal of %s has %d fields, want %d", v.facts.Name(e.Type), len(e.Args), len(fields))
		}
		for _, a := range e.Args {
			if err := v.checkExpr(a); err != nil {
				return err
			}
		}
	case ExprUnion:
		if _, ok := v.facts.Field(e.Type, e.Index); !ok {
			return v.errorf("variant %d out of range for %s", e.Index, v.facts.Name(e.Type))
		}
		if e.X != nil {
			return v.checkExpr(e.X)
		}
	case ExprCall:
		callee := v.m.Func(e.Name)
		if callee == nil {
			return v.errorf("call to unknown function %q", e.Name)
		}
		want := len(callee.Params)
		if e.X != nil {
			want--
			if e.Recv == RecvNone {
				return v.errorf("method call %q without receiver mode", e.Name)
			}
			if err := v.checkExpr(e.X); err != nil {
				return err
			}
		}
		if len(e.Args) != want {
			return v.errorf("call to %q passes %d arguments, want %d", e.Name, len(e.Args), want)
		}
		for _, a := range e.Args {
			if err := v.checkExpr(a); err != nil {
				return err
			}
		}
	case ExprRef:
		if e.X == nil {
			return v.errorf("reference without target")
		}
		return v.checkExpr(e.X)
	case ExprUnary:
		if !e.Op.IsUnary() {
			return v.errorf("operator %s is not unary", e.Op)
		}
		return v.checkExpr(e.X)
	case ExprBinary:
		if e.Op.IsUnary() {
			return v.errorf("operator %s is not binary", e.Op)
		}
		if err := v.checkExpr(e.X); err != nil {
			return err
		}
		return v.checkExpr(e.Y)
	default:
		return v.errorf("unknown expression kind %d", e.Kind)
	}
	return nil
}
