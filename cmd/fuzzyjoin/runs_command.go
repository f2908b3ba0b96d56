package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fuzzyjoin/internal/manifest"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openManifest(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, runsJSON(runs))
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs, time.Now(), isTerminal(out)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 shows all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	cmd.AddCommand(newRunsPruneCommand(ctx))
	return cmd
}

func newRunsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openManifest(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Minimum age of runs to delete")
	return cmd
}

func renderRuns(runs []manifest.Run, now time.Time, colorize bool) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		started := "-"
		if t := run.StartedAt(); !t.IsZero() {
			started = humanize.RelTime(t, now, "ago", "from now")
		}
		failure := ""
		if run.ErrorKind.Valid {
			failure = run.ErrorKind.String
		}
		rows = append(rows, []string{
			shortID(run.ID),
			runStatusCell(run.Status, colorize),
			started,
			run.Duration().Round(time.Second).String(),
			count(run.RowsWritten),
			count(run.Batches),
			failure,
			run.OutputPath,
		})
	}
	return renderTable("",
		[]string{"Run", "Status", "Started", "Duration", "Rows", "Batches", "Failure", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type runJSON struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OutputPath   string `json:"output_path"`
	LeftPath     string `json:"left_path"`
	RightPath    string `json:"right_path"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
	RowsWritten  int64  `json:"rows_written"`
	Batches      int    `json:"batches"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func runsJSON(runs []manifest.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		item := runJSON{
			ID:           run.ID,
			Status:       string(run.Status),
			OutputPath:   run.OutputPath,
			LeftPath:     run.LeftPath,
			RightPath:    run.RightPath,
			StartedAt:    run.StartedAt().Format(time.RFC3339),
			RowsWritten:  run.RowsWritten,
			Batches:      run.Batches,
			ErrorKind:    run.ErrorKind.String,
			ErrorMessage: run.ErrorMessage.String,
		}
		if t := run.FinishedAt(); !t.IsZero() {
			item.FinishedAt = t.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return out
}
