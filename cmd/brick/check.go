package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"brick/internal/borrowck"
	"brick/internal/diag"
	"brick/internal/driver"
	"brick/internal/hir"
	"brick/internal/hirio"
)

type checkFlags struct {
	emitAnnotated bool
	emitEvents    bool
	withNotes     bool
	watch         bool
	ui            string
}

func newCheckCmd() *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check [flags] <ir.yaml|ir.mp>",
		Short: "Check ownership and borrowing of every function in an IR module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.watch {
				return watchAndCheck(cmd, args[0], f)
			}
			return runCheck(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&f.emitAnnotated, "emit-annotated", false, "print the annotated IR after a clean check")
	fl.BoolVar(&f.emitEvents, "emit-events", false, "print move/borrow/drop events per function")
	fl.BoolVar(&f.withNotes, "with-notes", true, "include diagnostic notes")
	fl.BoolVar(&f.watch, "watch", false, "re-check whenever the input file changes")
	fl.StringVar(&f.ui, "ui", "off", "progress UI (auto|on|off)")
	fl.Int("jobs", 0, "parallel workers (0 = brick.toml or GOMAXPROCS)")
	fl.Bool("cache", false, "reuse results of unchanged functions")
	fl.String("cache-dir", "", "cache directory (default brick.toml [cache].dir or user cache)")
	return cmd
}

func runCheck(cmd *cobra.Command, input string, f checkFlags) error {
	s, err := loadSettings(cmd, input)
	if err != nil {
		return err
	}
	mode, err := readUIMode(f.ui)
	if err != nil {
		return err
	}

	res, err := checkInput(cmd, input, s, shouldUseTUI(mode) && !f.watch)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printDiagnostics(out, res, f.withNotes)
	if f.emitEvents {
		for _, fr := range res.Funcs {
			if len(fr.Events) == 0 {
				continue
			}
			fmt.Fprintf(out, "events %s:\n", fr.Name)
			if err := borrowck.WriteEvents(out, fr.Events); err != nil {
				return err
			}
		}
	}
	if f.emitAnnotated && res.Annotated != nil {
		if err := hir.Dump(out, res.Annotated); err != nil {
			return err
		}
	}
	s.printTimings(cmd)
	if res.HasErrors() {
		dumpTraceRing(cmd)
		return errDiagnostics
	}
	return nil
}

// checkInput loads and checks input, optionally behind the progress UI.
func checkInput(cmd *cobra.Command, input string, s *settings, tui bool) (*driver.Result, error) {
	idx := s.opts.Timer.Begin("load")
	m, err := hirio.Load(input)
	s.opts.Timer.End(idx, "")
	if err != nil {
		return &driver.Result{Diagnostics: []diag.Diagnostic{driver.LoadDiagnostic(err)}}, nil
	}
	if !tui {
		return driver.CheckModule(cmd.Context(), m, s.opts)
	}
	names := make([]string, len(m.Funcs))
	for i, fn := range m.Funcs {
		names[i] = fn.Name
	}
	return runCheckWithUI(cmd.Context(), filepath.Base(input), names, m, s.opts)
}

func printDiagnostics(out io.Writer, res *driver.Result, withNotes bool) {
	fmt.Fprint(out, diag.FormatShort(res.Diagnostics, res.FileSet(), withNotes))
	errs := 0
	for _, d := range res.Diagnostics {
		if d.Severity.AtLeast(diag.SevError) {
			errs++
		}
	}
	switch {
	case errs > 0:
		color.New(color.FgRed, color.Bold).Fprintf(out, "%d error(s)\n", errs)
	case res.Module != nil:
		color.New(color.FgGreen).Fprintf(out, "ok: %d functions checked (%d cached)\n", len(res.Funcs), res.CacheHits())
	}
}

const watchDebounce = 100 * time.Millisecond

// watchAndCheck runs a check, then re-runs it after every write to input
// until the command context is canceled.
func watchAndCheck(cmd *cobra.Command, input string, f checkFlags) error {
	abs, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// editors replace files by rename, so watch the directory
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	once := func() {
		if err := runCheck(cmd, input, f); err != nil && !errors.Is(err, errDiagnostics) {
			fmt.Fprintln(cmd.ErrOrStderr(), "brick:", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", input)
	}
	once()

	var pending <-chan time.Time
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(watchDebounce)
		case <-pending:
			pending = nil
			once()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "watch:", err)
		}
	}
}
