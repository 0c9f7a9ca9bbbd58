package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"brick/internal/trace"
)

// setupTracing reads the --trace* flags and attaches a tracer to the
// command context. The returned cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := flags.GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := flags.GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// --trace without a level means phase-level tracing
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{Level: level, Mode: mode, Format: format, OutputPath: output})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	return func() {
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// dumpTraceRing writes the in-memory trace tail to stderr. Used when a
// check fails under --trace-mode=ring|both.
func dumpTraceRing(cmd *cobra.Command) {
	ring := trace.Ring(trace.FromContext(cmd.Context()))
	if ring == nil {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "--- trace (most recent events) ---")
	if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
	}
}
