// Package borrowck checks ownership and borrowing of one HIR function and
// annotates it with the drops that discharge every owned value exactly once.
//
// The checker lowers the function into a cfg.Graph, runs a forward dataflow
// over moved paths and active leases to a fixed point, replays the converged
// states once to report diagnostics and collect drops, and finally writes
// the drops back into a copy of the structured body.
package borrowck

import (
	"context"
	"fmt"
	"strconv"

	"brick/internal/cfg"
	"brick/internal/diag"
	"brick/internal/hir"
	"brick/internal/source"
	"brick/internal/trace"
	"brick/internal/types"
)

// ErrMalformedIR is returned for input that violates HIR structure.
var ErrMalformedIR = hir.ErrMalformed

// Options tune a Check run.
type Options struct {
	// MaxDiagnostics caps collected diagnostics (0 means the bag default).
	MaxDiagnostics int
	// MaxIterations bounds fixed-point sweeps (0 means DefaultMaxIterations).
	MaxIterations int
}

// Result is the outcome of checking one function.
type Result struct {
	// Func is the annotated copy of the input, nil when errors were found.
	Func        *hir.Func
	Diagnostics []diag.Diagnostic
	Events      []Event
	Iterations  int
}

// HasErrors reports whether any error diagnostic was produced.
func (r *Result) HasErrors() bool {
	if r == nil {
		return false
	}
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

type checker struct {
	facts  *types.Interner
	fn     *hir.Func
	g      *cfg.Graph
	paths  *PathTable
	leases *leaseTable
	rep    diag.Reporter
	opts   Options

	in, out []*flowState
	emit    bool
	loop    cfg.LoopID
	touched []LeaseID

	drops  map[cfg.Anchor][]hir.Drop
	events []Event
}

// Check runs the ownership analysis on fn, which must belong to m. The
// input function is not modified.
func Check(ctx context.Context, m *hir.Module, fn *hir.Func, opts Options) (*Result, error) {
	if m == nil || fn == nil {
		return nil, fmt.Errorf("%w: nil module or function", ErrMalformedIR)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tracer := trace.FromContext(ctx)
	fnSpan := trace.Begin(tracer, trace.ScopeFunc, "borrowck:"+fn.Name, trace.CurrentSpan(ctx).SpanID)

	work := fn.Clone()
	cfgSpan := trace.Begin(tracer, trace.ScopePhase, "borrowck_cfg", fnSpan.ID())
	g, err := cfg.Build(work)
	if err != nil {
		cfgSpan.End("error")
		fnSpan.End("error")
		return nil, fmt.Errorf("%s: %w", fn.Name, err)
	}
	cfgSpan.WithExtra("blocks", strconv.Itoa(len(g.Blocks))).End("")

	limit := opts.MaxDiagnostics
	if limit <= 0 {
		limit = 1000
	}
	bag := diag.NewBag(limit)
	c := &checker{
		facts:  m.Facts(),
		fn:     work,
		g:      g,
		paths:  NewPathTable(work, m.Facts()),
		leases: newLeaseTable(),
		rep:    diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		opts:   opts,
		loop:   cfg.NoLoop,
		drops:  make(map[cfg.Anchor][]hir.Drop),
	}

	flowSpan := trace.Begin(tracer, trace.ScopePhase, "borrowck_dataflow", fnSpan.ID())
	iters, err := c.solve(ctx)
	if err != nil {
		flowSpan.End("canceled")
		fnSpan.End("canceled")
		return nil, err
	}
	c.finish()
	flowSpan.WithExtra("iterations", strconv.Itoa(iters)).End("")

	res := &Result{Events: c.events, Iterations: iters}
	if !bag.HasErrors() {
		annSpan := trace.Begin(tracer, trace.ScopePhase, "borrowck_annotate", fnSpan.ID())
		c.annotate()
		res.Func = work
		annSpan.End("")
	}
	bag.Sort()
	res.Diagnostics = bag.Items()
	fnSpan.WithExtra("diagnostics", strconv.Itoa(len(res.Diagnostics))).End("")
	return res, nil
}

func (c *checker) report(code diag.Code, sp source.Span, msg string, notes ...diag.Note) {
	if !c.emit {
		return
	}
	c.rep.Report(code, diag.SevError, sp, msg, notes)
}

func (c *checker) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	if !c.emit {
		return
	}
	c.rep.Report(code, diag.SevError, sp, fmt.Sprintf(format, args...), nil)
}
