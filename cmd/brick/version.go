package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brick/internal/hirio"
	"brick/internal/version"
)

func newVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Current(hirio.SupportedSchemas)
			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			case "pretty", "":
				fmt.Fprintf(out, "brick %s\n", version.Colored())
				fmt.Fprintf(out, "ir schema: %s\n", info.IRSchema)
				if info.GitCommit != "" {
					fmt.Fprintf(out, "commit: %s\n", info.GitCommit)
				}
				if info.BuildDate != "" {
					fmt.Fprintf(out, "built:  %s\n", info.BuildDate)
				}
				return nil
			}
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}
