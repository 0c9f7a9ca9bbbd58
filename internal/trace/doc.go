// Package trace records nested spans for the checker pipeline.
//
// A Tracer travels through context.Context. The driver opens one span per
// module and per function; the checker adds spans for CFG construction,
// the dataflow solve and annotation:
//
//	ctx = trace.WithTracer(ctx, tr)
//	sp := trace.Begin(trace.FromContext(ctx), trace.ScopeFunc, "borrowck:main", 0)
//	defer sp.End("")
//
// Stream tracers write each event as it happens (text or NDJSON). Ring
// tracers keep the last N events in memory so `brick check` can dump them
// only when a check fails.
package trace
