package vm

import (
	"fmt"
	"strings"

	"brick/internal/source"
)

// PanicCode identifies the type of VM panic.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicUseBeforeInit  PanicCode = 1001 // VM1001: use before initialization
	PanicUseAfterMove   PanicCode = 1002 // VM1002: use after move
	PanicTypeMismatch   PanicCode = 1003 // VM1003: type mismatch
	PanicDivideByZero   PanicCode = 1004 // VM1004: integer division by zero
	PanicUseAfterDrop   PanicCode = 1005 // VM1005: use of a destroyed value
	PanicDoubleDrop     PanicCode = 1006 // VM1006: destructor ran twice
	PanicDropMoved      PanicCode = 1007 // VM1007: destructor ran on moved-out storage
	PanicLeak           PanicCode = 1008 // VM1008: owned value never destroyed
	PanicStepLimit      PanicCode = 1009 // VM1009: step budget exhausted
	PanicStackOverflow  PanicCode = 1010 // VM1010: call depth exceeded
	PanicUnknownFunc    PanicCode = 1011 // VM1011: call to undefined function
	PanicUnimplemented  PanicCode = 1999 // VM1999: unsupported construct
)

// String returns the code as "VM1001" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// BacktraceFrame represents one frame in the panic backtrace.
type BacktraceFrame struct {
	FuncName string
	Span     source.Span
}

// VMError represents a runtime panic in the VM.
type VMError struct {
	Code      PanicCode
	Message   string
	Span      source.Span      // Location where panic occurred
	Backtrace []BacktraceFrame // Stack frames from top to bottom
}

// Error implements the error interface.
func (p *VMError) Error() string {
	return fmt.Sprintf("panic %s: %s", p.Code, p.Message)
}

// FormatWithFiles formats the panic with resolved file positions.
func (p *VMError) FormatWithFiles(files *source.FileSet) string {
	var sb strings.Builder

	// Header: panic VM1002: <message>
	fmt.Fprintf(&sb, "panic %s: %s\n", p.Code, p.Message)
	sb.WriteString("at ")
	sb.WriteString(formatSpan(p.Span, files))
	sb.WriteString("\n")

	if len(p.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, frame := range p.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s at %s\n", i, frame.FuncName, formatSpan(frame.Span, files))
		}
	}
	return sb.String()
}

// formatSpan formats a span as "file:start-end" or "<no-span>" if empty.
func formatSpan(span source.Span, files *source.FileSet) string {
	if span == (source.Span{}) {
		return "<no-span>"
	}
	if files == nil {
		return span.String()
	}
	return files.Format(span)
}

// panicf builds a VMError at the current statement with a backtrace.
func (vm *VM) panicf(code PanicCode, format string, args ...any) *VMError {
	err := &VMError{Code: code, Message: fmt.Sprintf(format, args...)}
	for i := len(vm.stack) - 1; i >= 0; i-- {
		f := vm.stack[i]
		if i == len(vm.stack)-1 {
			err.Span = f.Span
		}
		err.Backtrace = append(err.Backtrace, BacktraceFrame{FuncName: f.Func.Name, Span: f.Span})
	}
	return err
}
