package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fuzzyjoin/internal/preflight"
	"fuzzyjoin/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipSink bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify sources, directories and object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, !skipSink)
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			rows := make([][]string, 0, len(results)+1)
			rows = append(rows, []string{"Config", statusCell(statusInfo, colorize), ctx.configPath})
			for _, r := range results {
				rows = append(rows, []string{r.Name, statusCell(checkKind(r.Passed), colorize), r.Detail})
			}
			fmt.Fprintln(out, renderTable("Preflight", []string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "preflight", "", fmt.Sprintf("%d check(s) failed", len(failed)), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSink, "skip-sink", false, "Do not probe object storage")
	return cmd
}
