// Package diag defines the diagnostic model shared by the checker phases.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for ownership and borrow
//     findings, IR loading problems and configuration errors.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the canonical source.Span pointing to the issue.
//   - Notes – optional secondary spans/messages for additional context.
//
// Notes should be used sparingly: each note must add new context (e.g. “value
// moved here”) rather than repeating the diagnostic message.
//
// # Emitting diagnostics
//
// Phases use a diag.Reporter to decouple emission from storage. The borrow
// checker reports with notes attached directly. DedupReporter drops repeats
// produced when dataflow revisits a statement; BagReporter collects into a
// Bag, which enforces the per-function limit and sorts for output.
//
// Keep the data model deterministic: the driver caches diagnostics with
// msgpack and tests compare them structurally.
package diag
