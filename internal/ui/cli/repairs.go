package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"apidrift/internal/core/app"

	"github.com/spf13/cobra"
)

func newRepairsCmd(rt *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repairs",
		Short: "Inspect and export queued repair tasks",
	}
	cmd.AddCommand(newRepairsStatusCmd(rt))
	cmd.AddCommand(newRepairsExportCmd(rt))
	return cmd
}

func newRepairsStatusCmd(rt *session) *cobra.Command {
	var runKey string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print pending repair tasks per API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spool, err := rt.openSpool(runKey)
			if err != nil {
				return err
			}
			defer spool.Close()

			pending, err := spool.PendingCount(cmd.Context())
			if err != nil {
				return err
			}
			groups, err := spool.PendingByAPI(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d pending\n", runKey, pending)
			for _, g := range groups {
				fmt.Fprintf(out, "  %-40s %d\n", g.API, g.Count)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runKey, "run", "default", "spool run key, the report name used by eval")
	return cmd
}

func newRepairsExportCmd(rt *session) *cobra.Command {
	var (
		runKey    string
		outPath   string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Drain queued repair tasks as JSON lines",
		Long: `Drain the repair spool of one run as JSON lines, to stdout or --out.
Exported tasks are removed from the spool. A failed write leaves the
batch queued for a later export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spool, err := rt.openSpool(runKey)
			if err != nil {
				return err
			}
			defer spool.Close()

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				file, err := os.OpenFile(outPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open export file: %w", err)
				}
				defer file.Close()
				w = file
			}

			n, err := app.ExportRepairs(cmd.Context(), spool, w, app.ExportOptions{
				BatchSize:      batchSize,
				RetryBaseDelay: time.Second,
			})
			slog.Info("repair tasks exported", "run", runKey, "count", n)
			return err
		},
	}
	cmd.Flags().StringVar(&runKey, "run", "default", "spool run key, the report name used by eval")
	cmd.Flags().StringVar(&outPath, "out", "", "append to this file instead of stdout")
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "tasks per spool batch")
	return cmd
}
