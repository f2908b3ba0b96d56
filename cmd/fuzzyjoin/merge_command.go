package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fuzzyjoin/internal/batch"
	"fuzzyjoin/internal/config"
	"fuzzyjoin/internal/services"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge leftover batch files into the final output",
		Long: `Merge the batch files an interrupted run left behind into the final
output and delete them. The output path defaults to output.path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := cfg.Output.Path
			if strings.TrimSpace(output) != "" {
				target, err = config.ExpandPath(output)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "config", "--output", output, err)
				}
			}
			if target == "" {
				return services.Wrap(services.ErrConfiguration, "config", "merge", "missing output.path (--output)", nil)
			}
			logger, err := ctx.loggerFor(cfg)
			if err != nil {
				return err
			}

			result, err := batch.Merge(cmd.Context(), target, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Batches == 0 {
				fmt.Fprintf(out, "No batch files found for %s\n", target)
				return nil
			}
			fmt.Fprintln(out, renderPairs("Merge", [][2]string{
				{"Output", result.Path},
				{"Batches", count(result.Batches)},
				{"Rows", count(result.Rows)},
				{"Columns", count(len(result.Schema))},
				{"Schema unified", yesNo(result.Unified)},
			}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Final output artifact path")
	return cmd
}
