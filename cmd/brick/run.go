package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"brick/internal/vm"
)

func newRunCmd() *cobra.Command {
	var (
		entry    string
		maxSteps int
	)
	cmd := &cobra.Command{
		Use:   "run [flags] <ir.yaml|ir.mp>",
		Short: "Check a module, then execute its entry function in the reference VM",
		Long: `run checks the module and evaluates the annotated IR. The VM executes the
inserted drops and fails on double drops, use after move and leaks. Globals are
printed after a successful run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := checkInput(cmd, args[0], s, false)
			if err != nil {
				return err
			}
			if res.HasErrors() {
				printDiagnostics(cmd.OutOrStdout(), res, true)
				return errDiagnostics
			}

			idx := s.opts.Timer.Begin("run")
			machine := vm.New(res.Annotated, vm.Options{MaxSteps: maxSteps})
			_, err = machine.Run(cmd.Context(), entry)
			s.opts.Timer.End(idx, fmt.Sprintf("%d steps", machine.Steps()))
			s.printTimings(cmd)
			if err != nil {
				var vmErr *vm.VMError
				if errors.As(err, &vmErr) {
					fmt.Fprint(cmd.ErrOrStderr(), vmErr.FormatWithFiles(res.FileSet()))
					return errDiagnostics
				}
				return err
			}

			names := make([]string, 0, len(res.Annotated.Globals))
			for _, g := range res.Annotated.Globals {
				names = append(names, g.Name)
			}
			slices.Sort(names)
			for _, name := range names {
				v, _ := machine.Global(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", name, v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&entry, "entry", "main", "entry function")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "statement budget (0 = default)")
	cmd.Flags().Int("jobs", 0, "parallel workers for the check")
	return cmd
}
