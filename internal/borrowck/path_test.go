package borrowck

import (
	"testing"

	"brick/internal/hir"
	"brick/internal/hir/hirtest"
)

func TestPathPrefixAndDisjoint(t *testing.T) {
	tk := hirtest.NewToken("paths")
	b := tk.B
	x := b.Var("t", tk.R)
	fn := b.Func("main", b.Unit, nil, x.Let(tk.New()))
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pt := NewPathTable(fn, m.Facts())

	root, ok := pt.Normalize(x.Ref())
	if !ok {
		t.Fatalf("local does not normalize")
	}
	a, _ := pt.Normalize(hir.FieldOf(x.Ref(), 0, tk.Res))
	a2, _ := pt.Normalize(hir.FieldOf(x.Ref(), 0, tk.Res))
	bf, _ := pt.Normalize(hir.FieldOf(x.Ref(), 1, tk.Res))

	if a != a2 {
		t.Fatalf("equal paths must intern to one id: %d vs %d", a, a2)
	}
	if !pt.IsPrefix(root, a) || pt.IsPrefix(a, root) {
		t.Fatalf("prefix relation wrong for t and t.a")
	}
	if !pt.IsPrefix(a, a) {
		t.Fatalf("a path is a prefix of itself")
	}
	if !pt.Disjoint(a, bf) {
		t.Fatalf("sibling fields must be disjoint")
	}
	if pt.Disjoint(root, bf) {
		t.Fatalf("parent and field overlap")
	}
	if got := pt.String(bf); got != "t.b" {
		t.Fatalf("String = %q, want t.b", got)
	}
	pl := pt.Place(bf)
	if pl.Local != x.ID || len(pl.Proj) != 1 || pl.Proj[0].Index != 1 {
		t.Fatalf("Place = %+v", pl)
	}
}

func TestNormalizeRejectsTemporaries(t *testing.T) {
	tk := hirtest.NewToken("temps")
	b := tk.B
	shared := b.Ref(tk.R, false)
	r := b.Var("r", shared)
	fn := b.Func("main", b.Unit, []hirtest.Var{r})
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pt := NewPathTable(fn, m.Facts())

	for name, e := range map[string]*hir.Expr{
		"literal": hir.Lit(b.Int, 1),
		"call":    hir.Call("make", tk.R),
		"field":   hir.FieldOf(hir.Call("make", tk.R), 0, tk.Res),
		"global":  b.G("drops"),
	} {
		if _, ok := pt.Normalize(e); ok {
			t.Fatalf("%s normalized to a path", name)
		}
	}

	through, ok := pt.Normalize(hir.FieldOf(r.Ref(), 1, tk.Res))
	if !ok {
		t.Fatalf("field through reference must normalize")
	}
	if !pt.Indirect(through) {
		t.Fatalf("path through a reference must be indirect")
	}
	if got := pt.String(through); got != "r.b" {
		t.Fatalf("String = %q, want r.b", got)
	}
	if pl := pt.Place(through); !pl.Deref {
		t.Fatalf("place through a reference must carry Deref")
	}
}
