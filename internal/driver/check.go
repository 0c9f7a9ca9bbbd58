// Package driver checks whole modules: it loads IR, fans the per-function
// ownership check out over a bounded worker group, consults the result
// cache and merges diagnostics into one deterministic list.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"brick/internal/borrowck"
	"brick/internal/diag"
	"brick/internal/hir"
	"brick/internal/hirio"
	"brick/internal/observ"
	"brick/internal/source"
	"brick/internal/trace"
)

// Options configures a module check.
type Options struct {
	Jobs           int // <= 0 means GOMAXPROCS
	MaxDiagnostics int // per function and for the merged list
	MaxIterations  int
	Cache          *DiskCache // nil disables caching
	Progress       ProgressSink
	Timer          *observ.Timer
}

func (o Options) checkOptions() borrowck.Options {
	return borrowck.Options{MaxDiagnostics: o.MaxDiagnostics, MaxIterations: o.MaxIterations}
}

// FuncResult is the outcome for one function.
type FuncResult struct {
	Name        string
	Diagnostics []diag.Diagnostic
	Events      []borrowck.Event
	Func        *hir.Func // annotated copy; nil when the function has errors
	Iterations  int
	Cached      bool
}

// Result is the outcome for a module.
type Result struct {
	Module      *hir.Module
	Annotated   *hir.Module // nil when any function has errors
	Funcs       []FuncResult
	Diagnostics []diag.Diagnostic
}

// HasErrors reports whether any error diagnostic was produced.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

// CacheHits counts functions served from the cache.
func (r *Result) CacheHits() int {
	n := 0
	for _, f := range r.Funcs {
		if f.Cached {
			n++
		}
	}
	return n
}

// FileSet returns a file set matching the module's file table.
func (r *Result) FileSet() *source.FileSet {
	if r.Module == nil {
		return source.NewFileSet()
	}
	return r.Module.FileSet()
}

// CheckFile loads path and checks it. Load failures are reported as a
// single diagnostic so callers print them like any other finding; the
// error return is reserved for cancellation and internal failures.
func CheckFile(ctx context.Context, path string, opts Options) (*Result, error) {
	notify(opts.Progress, Event{Stage: StageLoad, Status: StatusWorking})
	idx := opts.Timer.Begin("load")
	m, err := hirio.Load(path)
	if err != nil {
		opts.Timer.End(idx, "error")
		notify(opts.Progress, Event{Stage: StageLoad, Status: StatusError})
		return &Result{Diagnostics: []diag.Diagnostic{LoadDiagnostic(err)}}, nil
	}
	opts.Timer.End(idx, strconv.Itoa(len(m.Funcs))+" funcs")
	notify(opts.Progress, Event{Stage: StageLoad, Status: StatusDone})
	return CheckModule(ctx, m, opts)
}

// LoadDiagnostic maps an IR load error to its diagnostic code.
func LoadDiagnostic(err error) diag.Diagnostic {
	code := diag.IOLoadFileError
	switch {
	case errors.Is(err, hirio.ErrSchemaMismatch):
		code = diag.IRSchemaMismatch
	case errors.Is(err, hir.ErrMalformed):
		code = diag.IRMalformed
	}
	return diag.NewError(code, source.Span{}, err.Error())
}

// CheckModule checks every function of m. m must be bound.
func CheckModule(ctx context.Context, m *hir.Module, opts Options) (*Result, error) {
	if m.Facts() == nil {
		return nil, fmt.Errorf("%w: module %s is not bound", hir.ErrMalformed, m.Name)
	}
	tracer := trace.FromContext(ctx)
	modSpan := trace.Begin(tracer, trace.ScopeModule, "check:"+m.Name, trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, modSpan)
	phase := opts.Timer.Begin("borrowck")

	var env Digest
	if opts.Cache != nil {
		var err error
		if env, err = envDigest(m, opts); err != nil {
			modSpan.End("error")
			return nil, err
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]FuncResult, len(m.Funcs))
	for _, fn := range m.Funcs {
		notify(opts.Progress, Event{Func: fn.Name, Stage: StageCheck, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(m.Funcs))))
	for i, fn := range m.Funcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := checkFunc(gctx, m, fn, env, opts)
			if err != nil {
				notify(opts.Progress, Event{Func: fn.Name, Stage: StageCheck, Status: StatusError})
				return err
			}
			// i is unique per goroutine
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		opts.Timer.End(phase, "error")
		modSpan.End("error")
		return nil, err
	}

	out := &Result{Module: m, Funcs: results}
	bag := diag.NewBag(limitOr(opts.MaxDiagnostics))
	for _, r := range results {
		for _, d := range r.Diagnostics {
			bag.Add(d)
		}
	}
	bag.Sort()
	out.Diagnostics = bag.Items()
	if !out.HasErrors() {
		out.Annotated = m.ShallowCopy()
		for i := range results {
			out.Annotated.Funcs[i] = results[i].Func
		}
	}
	note := fmt.Sprintf("%d funcs, %d cached", len(results), out.CacheHits())
	opts.Timer.End(phase, note)
	modSpan.WithExtra("diagnostics", strconv.Itoa(len(out.Diagnostics))).End(note)
	notify(opts.Progress, Event{Stage: StageCheck, Status: StatusDone})
	return out, nil
}

func checkFunc(ctx context.Context, m *hir.Module, fn *hir.Func, env Digest, opts Options) (FuncResult, error) {
	start := time.Now()
	notify(opts.Progress, Event{Func: fn.Name, Stage: StageCheck, Status: StatusWorking})

	var key Digest
	if opts.Cache != nil {
		var err error
		if key, err = funcDigest(env, fn); err != nil {
			return FuncResult{}, err
		}
		payload, ok, err := opts.Cache.Get(key)
		if err != nil {
			// a corrupt entry is recomputed and overwritten
			trace.Point(trace.FromContext(ctx), trace.ScopeFunc, "cache_read_error", err.Error(), trace.CurrentSpan(ctx).SpanID)
		}
		if ok {
			notify(opts.Progress, Event{Func: fn.Name, Stage: StageCache, Status: StatusDone, Elapsed: time.Since(start)})
			return FuncResult{
				Name:        fn.Name,
				Diagnostics: payload.Diagnostics,
				Events:      payload.Events,
				Func:        payload.Func,
				Iterations:  payload.Iterations,
				Cached:      true,
			}, nil
		}
	}

	res, err := borrowck.Check(ctx, m, fn, opts.checkOptions())
	if err != nil {
		return FuncResult{}, err
	}
	out := FuncResult{
		Name:        fn.Name,
		Diagnostics: res.Diagnostics,
		Events:      res.Events,
		Func:        res.Func,
		Iterations:  res.Iterations,
	}
	if opts.Cache != nil {
		err := opts.Cache.Put(key, &FuncPayload{
			Name:        fn.Name,
			Diagnostics: out.Diagnostics,
			Events:      out.Events,
			Func:        out.Func,
			Iterations:  out.Iterations,
		})
		if err != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeFunc, "cache_write_error", err.Error(), trace.CurrentSpan(ctx).SpanID)
		}
	}
	status := StatusDone
	if res.HasErrors() {
		status = StatusError
	}
	notify(opts.Progress, Event{Func: fn.Name, Stage: StageCheck, Status: status, Elapsed: time.Since(start)})
	return out, nil
}

func limitOr(n int) int {
	if n <= 0 {
		return 1000
	}
	return n
}
