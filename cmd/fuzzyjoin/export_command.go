package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fuzzyjoin/internal/config"
	"fuzzyjoin/internal/export"
	"fuzzyjoin/internal/services"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var target string
	var sheet string

	cmd := &cobra.Command{
		Use:   "export [artifact.parquet]",
		Short: "Convert a match artifact to an XLSX workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src := cfg.Output.Path
			if len(args) == 1 {
				src, err = config.ExpandPath(args[0])
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "export", "resolve artifact", args[0], err)
				}
			}
			if src == "" {
				return services.Wrap(services.ErrConfiguration, "export", "", "no artifact given and output.path is empty", nil)
			}
			dst := strings.TrimSpace(target)
			if dst == "" {
				dst = strings.TrimSuffix(src, filepath.Ext(src)) + ".xlsx"
			} else if dst, err = config.ExpandPath(dst); err != nil {
				return services.Wrap(services.ErrConfiguration, "export", "--out", target, err)
			}
			if sheet == "" {
				sheet = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
			}
			logger, err := ctx.loggerFor(cfg)
			if err != nil {
				return err
			}

			result, err := export.XLSX(cmd.Context(), src, dst, export.Options{Sheet: sheet, Logger: logger})
			if err != nil {
				return services.Wrap(services.ErrSerialization, "export", "", src, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s rows to %s (sheet %q)\n", count(result.Rows), result.Path, result.Sheet)
			if result.Truncated {
				fmt.Fprintf(out, "%s rows did not fit on the sheet and were left out\n", count(result.Skipped))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "out", "", "Workbook path (defaults to the artifact path with .xlsx)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (defaults to the artifact name)")
	return cmd
}
