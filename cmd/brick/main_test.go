package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"brick/internal/hir"
	"brick/internal/hir/hirtest"
	"brick/internal/hirio"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--color", "off"}, args...))
	err := root.Execute()
	runTeardown()
	return out.String(), err
}

func saveFixture(t *testing.T, m *hir.Module, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := hirio.Save(path, m, hirio.FormatAuto); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestCheckCleanModule(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatal(err)
	}
	path := saveFixture(t, m, "nested.yaml")
	out, err := execute(t, "check", "--emit-annotated", "--jobs", "2", path)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok: ") || !strings.Contains(out, "drop") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCheckReportsErrors(t *testing.T) {
	tk := hirtest.NewToken("broken")
	b := tk.B
	x := b.Var("t", tk.R)
	b.Func("main", b.Unit, nil,
		x.Let(tk.New()),
		tk.Consume(x.Ref()),
		tk.Consume(x.Ref()),
	)
	m, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	path := saveFixture(t, m, "broken.mp")
	out, err := execute(t, "check", path)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("expected errDiagnostics, got %v", err)
	}
	if !strings.Contains(out, "BRK3001") || !strings.Contains(out, "error(s)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCheckUsesCacheFromConfig(t *testing.T) {
	m, err := hirtest.Reassign()
	if err != nil {
		t.Fatal(err)
	}
	path := saveFixture(t, m, "reassign.yaml")
	dir := filepath.Dir(path)
	cfg := "[cache]\nenabled = true\ndir = \"cache\"\n"
	if err := os.WriteFile(filepath.Join(dir, "brick.toml"), []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "check", path); err != nil {
		t.Fatalf("first check: %v", err)
	}
	out, err := execute(t, "check", path)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	want := "(" + strconv.Itoa(len(m.Funcs)) + " cached)"
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in:\n%s", want, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache", "funcs")); err != nil {
		t.Fatalf("cache dir not created: %v", err)
	}
}

func TestRunPrintsGlobals(t *testing.T) {
	m, err := hirtest.NestedDrops()
	if err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "run", saveFixture(t, m, "nested.mp"))
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "counter = 4") || !strings.Contains(out, "order = 9123") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestDumpConvertsEncodings(t *testing.T) {
	m, err := hirtest.Reassign()
	if err != nil {
		t.Fatal(err)
	}
	src := saveFixture(t, m, "in.yaml")
	dst := filepath.Join(t.TempDir(), "out.mp")
	if out, err := execute(t, "dump", "--out", dst, src); err != nil {
		t.Fatalf("dump: %v\n%s", err, out)
	}
	back, err := hirio.Load(dst)
	if err != nil {
		t.Fatalf("load converted: %v", err)
	}
	if len(back.Funcs) != len(m.Funcs) {
		t.Fatalf("converted module has %d funcs, want %d", len(back.Funcs), len(m.Funcs))
	}

	out, err := execute(t, "dump", "--text", src)
	if err != nil {
		t.Fatalf("dump --text: %v", err)
	}
	if !strings.HasPrefix(out, "module ") {
		t.Fatalf("unexpected text dump:\n%s", out)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("bad json %q: %v", out, err)
	}
	if info["version"] == "" || info["ir_schema"] != hirio.SupportedSchemas {
		t.Fatalf("unexpected info %v", info)
	}
}

func TestReadUIMode(t *testing.T) {
	if m, err := readUIMode("ON"); err != nil || m != uiModeOn {
		t.Fatalf("readUIMode(ON) = %v, %v", m, err)
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
	if shouldUseTUI(uiModeOff) {
		t.Fatalf("off must disable the UI")
	}
}
