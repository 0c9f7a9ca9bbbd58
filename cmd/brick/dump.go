package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"brick/internal/hir"
	"brick/internal/hirio"
)

func newDumpCmd() *cobra.Command {
	var (
		format    string
		out       string
		annotated bool
		text      bool
	)
	cmd := &cobra.Command{
		Use:   "dump [flags] <ir.yaml|ir.mp>",
		Short: "Convert IR between YAML and msgpack, or print it as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hirio.ParseFormat(format)
			if err != nil {
				return err
			}
			m, err := hirio.Load(args[0])
			if err != nil {
				return err
			}
			if annotated {
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
				m = res.Annotated
			}

			if text {
				return hir.Dump(cmd.OutOrStdout(), m)
			}
			if out == "" || out == "-" {
				if f == hirio.FormatAuto {
					f = hirio.FormatYAML
				}
				return hirio.Encode(cmd.OutOrStdout(), m, f)
			}
			if err := hirio.Save(out, m, f); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "auto", "output encoding (auto|yaml|msgpack); auto follows --out's extension")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&annotated, "annotated", false, "check first and dump the annotated module")
	cmd.Flags().BoolVar(&text, "text", false, "print the human-readable form instead of an encoding")
	return cmd
}
