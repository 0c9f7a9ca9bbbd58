package hir_test

import (
	"errors"
	"strings"
	"testing"

	"brick/internal/hir"
	"brick/internal/hir/hirtest"
)

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body func(tk *hirtest.Token) []*hir.Stmt
		want string
	}{
		{
			name: "local out of scope",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				x := tk.B.Var("x", tk.R)
				return []*hir.Stmt{
					hir.Nested(hir.Blk(x.Let(tk.New()))),
					tk.Consume(x.Ref()),
				}
			},
			want: "outside of its scope",
		},
		{
			name: "break outside loop",
			body: func(*hirtest.Token) []*hir.Stmt { return []*hir.Stmt{hir.Break()} },
			want: "outside of a loop",
		},
		{
			name: "unknown callee",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				return []*hir.Stmt{hir.ExprStmt(hir.Call("nope", tk.B.Unit))}
			},
			want: `unknown function "nope"`,
		},
		{
			name: "field index out of range",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				x := tk.B.Var("x", tk.R)
				return []*hir.Stmt{
					x.Let(tk.New()),
					hir.ExprStmt(hir.FieldOf(x.Ref(), 7, tk.B.Int)),
				}
			},
			want: "out of range",
		},
		{
			name: "local declared twice",
			body: func(tk *hirtest.Token) []*hir.Stmt {
				x := tk.B.Var("x", tk.B.Int)
				return []*hir.Stmt{x.Let(hir.Lit(tk.B.Int, 1)), x.Let(hir.Lit(tk.B.Int, 2))}
			},
			want: "declared twice",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := hirtest.NewToken("bad")
			tk.B.Func("main", tk.B.Unit, nil, tc.body(tk)...)
			_, err := tk.B.Build()
			if !errors.Is(err, hir.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateRejectsDuplicateFunc(t *testing.T) {
	m, err := hirtest.Reassign()
	if err != nil {
		t.Fatal(err)
	}
	m.Funcs = append(m.Funcs, m.Funcs[0].Clone())
	if err := hir.Validate(m); !errors.Is(err, hir.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatal(err)
	}
	for _, fn := range m.Funcs {
		before := hir.DumpFunc(fn, m.Facts())
		cp := fn.Clone()
		if got := hir.DumpFunc(cp, m.Facts()); got != before {
			t.Fatalf("clone of %s prints differently:\n%s\nvs\n%s", fn.Name, got, before)
		}
		if len(cp.Body.Stmts) == 0 {
			continue
		}
		cp.Body.Stmts[0] = hir.Break()
		cp.Body.Stmts = append(cp.Body.Stmts, hir.Return(nil))
		if after := hir.DumpFunc(fn, m.Facts()); after != before {
			t.Fatalf("mutating the clone of %s changed the original", fn.Name)
		}
	}
}

func TestDumpIsDeterministic(t *testing.T) {
	render := func() string {
		m, err := hirtest.NestedDrops()
		if err != nil {
			t.Fatal(err)
		}
		var sb strings.Builder
		if err := hir.Dump(&sb, m); err != nil {
			t.Fatal(err)
		}
		return sb.String()
	}
	first, second := render(), render()
	if first != second {
		t.Fatalf("dump differs between identical builds:\n%s\n---\n%s", first, second)
	}
	if !strings.HasPrefix(first, "module ") {
		t.Fatalf("unexpected dump header: %q", first)
	}
}
