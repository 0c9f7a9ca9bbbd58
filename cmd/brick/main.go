package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"brick/internal/prof"
	"brick/internal/version"
)

// errDiagnostics signals that findings were already printed; main exits 1
// without repeating them.
var errDiagnostics = errors.New("diagnostics reported")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "brick",
		Short:         "Ownership and borrow checker for brick IR",
		Long:          `brick checks move, borrow and drop rules on typed IR and inserts the drops the program needs`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			session, err := startProfiling(cmd)
			if err != nil {
				cleanup()
				return err
			}
			teardown = func() {
				if err := session.Stop(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "profile:", err)
				}
				cleanup()
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) { runTeardown() },
	}

	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("timings", false, "print phase timings")
	pf.Int("max-diagnostics", 0, "maximum diagnostics per function (0 = brick.toml or 1000)")
	pf.Int("max-iterations", 0, "dataflow iteration limit (0 = brick.toml or 128)")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.String("trace-format", "text", "trace format (text|ndjson)")
	pf.String("cpuprofile", "", "write a CPU profile to file")
	pf.String("memprofile", "", "write a heap profile to file on exit")

	root.AddCommand(newCheckCmd(), newRunCmd(), newDumpCmd(), newVersionCmd())
	return root
}

// teardown flushes tracing and profiles. It runs after the command, or
// from main when RunE failed and PersistentPostRun was skipped.
var teardown func()

func runTeardown() {
	if teardown != nil {
		teardown()
		teardown = nil
	}
}

func startProfiling(cmd *cobra.Command) (*prof.Session, error) {
	pf := cmd.Root().PersistentFlags()
	cpu, err := pf.GetString("cpuprofile")
	if err != nil {
		return nil, err
	}
	mem, err := pf.GetString("memprofile")
	if err != nil {
		return nil, err
	}
	return prof.Start(cpu, mem)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	runTeardown()
	if err == nil {
		return
	}
	if !errors.Is(err, errDiagnostics) {
		fmt.Fprintln(os.Stderr, "brick:", err)
	}
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
