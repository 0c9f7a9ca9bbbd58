// Package vm is a tree-walking evaluator for annotated HIR. It executes the
// drops the checker inserted and verifies at run time that every owned
// value is destroyed exactly once: destructors on moved or already
// destroyed storage, reads of moved values and leaked values all panic.
package vm

import (
	"context"
	"fmt"

	"brick/internal/hir"
	"brick/internal/types"
)

// Options configures VM execution.
type Options struct {
	MaxSteps int // statement budget, 0 means DefaultMaxSteps
	MaxDepth int // call depth limit, 0 means DefaultMaxDepth
	// AllowLeaks disables the leak check on function return, for running
	// IR that was not annotated by the checker.
	AllowLeaks bool
}

const (
	DefaultMaxSteps = 1 << 20
	DefaultMaxDepth = 512
)

// VM executes the functions of one module.
type VM struct {
	M       *hir.Module
	Types   *types.Interner
	Globals map[string]*Cell

	opts  Options
	ctx   context.Context
	steps int
	stack []*Frame
}

// New creates a VM with globals set to their initial values.
func New(m *hir.Module, opts Options) *VM {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	vm := &VM{
		M:       m,
		Types:   m.Facts(),
		Globals: make(map[string]*Cell, len(m.Globals)),
		opts:    opts,
		ctx:     context.Background(),
	}
	for _, g := range m.Globals {
		vm.Globals[g.Name] = &Cell{V: vm.scalar(g.Type, g.Init)}
	}
	return vm
}

// Global returns the current value of an int or bool global.
func (vm *VM) Global(name string) (int64, bool) {
	c, ok := vm.Globals[name]
	if !ok {
		return 0, false
	}
	return c.V.Int, true
}

// Steps returns the number of statements executed so far.
func (vm *VM) Steps() int { return vm.steps }

// Run calls the function entry with no arguments.
func (vm *VM) Run(ctx context.Context, entry string) (Value, error) {
	if ctx != nil {
		vm.ctx = ctx
	}
	fn := vm.M.Func(entry)
	if fn == nil {
		return Value{}, fmt.Errorf("entry function %q not found", entry)
	}
	if len(fn.Params) != 0 {
		return Value{}, fmt.Errorf("entry function %q must not take parameters", entry)
	}
	v, err := vm.call(fn, nil)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func (vm *VM) call(fn *hir.Func, args []Value) (Value, error) {
	if len(vm.stack) >= vm.opts.MaxDepth {
		return Value{}, vm.panicf(PanicStackOverflow, "call depth exceeds %d at %s", vm.opts.MaxDepth, fn.Name)
	}
	f := NewFrame(fn, args)
	vm.stack = append(vm.stack, f)
	defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()

	if _, err := vm.execBlock(f, fn.Body); err != nil {
		return Value{}, err
	}
	if !vm.opts.AllowLeaks {
		if err := vm.checkLeaks(f); err != nil {
			return Value{}, err
		}
	}
	return f.ret, nil
}

func (vm *VM) scalar(ty types.TypeID, n int64) Value {
	t, _ := vm.Types.Lookup(ty)
	switch t.Kind {
	case types.KindBool:
		return Value{Kind: VKBool, Type: ty, Int: n}
	case types.KindUnit:
		return Value{Kind: VKUnit, Type: ty}
	}
	return Value{Kind: VKInt, Type: ty, Int: n}
}

func (vm *VM) step() error {
	vm.steps++
	if vm.steps > vm.opts.MaxSteps {
		return vm.panicf(PanicStepLimit, "step budget of %d exhausted", vm.opts.MaxSteps)
	}
	if vm.steps&1023 == 0 {
		if err := vm.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
