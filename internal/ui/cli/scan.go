package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"apidrift/internal/core/app"
	"apidrift/internal/core/watcher"
	"apidrift/internal/ui/report"

	"github.com/spf13/cobra"
)

func newScanCmd(rt *session) *cobra.Command {
	var (
		rescan   bool
		watch    bool
		debounce time.Duration
		dbPath   string
		excludes []string
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "scan <package> [dir]",
		Short: "Scan versioned package sources into the knowledge base",
		Long: `Scan every "<package>-<version>" directory under dir (default: the configured
packages path joined with the package name) and store the API signatures
of each version. Versions already in the knowledge base are skipped unless
--rescan is given. Version deltas are recomputed afterwards.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg := strings.TrimSpace(args[0])
			dir := filepath.Join(rt.paths.Packages, pkg)
			if len(args) == 2 {
				dir = args[1]
			}

			store, err := rt.openKnowledge(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := app.BuildOptions{
				Excludes: rt.cfg.Scan.Exclude,
				Workers:  rt.cfg.Scan.Workers,
				Rescan:   rescan,
			}
			if cmd.Flags().Changed("exclude") {
				opts.Excludes = excludes
			}
			if workers > 0 {
				opts.Workers = workers
			}

			built, err := app.BuildPackage(cmd.Context(), store, pkg, dir, opts)
			if err != nil {
				return fmt.Errorf("scan %s: %w", pkg, err)
			}

			printBuild(cmd.OutOrStdout(), built)
			if !watch {
				return nil
			}
			return watchPackage(cmd, store, pkg, dir, opts, debounce)
		},
	}

	cmd.Flags().BoolVar(&rescan, "rescan", false, "re-scan versions already in the knowledge base")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and re-scan versions whose sources change")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a watched change is scanned")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "knowledge base path (default: paths.knowledge)")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "glob patterns of sources to skip (default: scan.exclude)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent file parsers (default: scan.workers)")
	return cmd
}

func printBuild(out io.Writer, built *app.BuildReport) {
	fmt.Fprintf(out, "Package %s (%s)\n", built.Package, built.Duration.Round(time.Millisecond))
	for _, version := range built.Scanned {
		fmt.Fprintf(out, "  scanned  %-16s %d APIs\n", version, built.APIs[version])
	}
	for _, version := range built.Skipped {
		fmt.Fprintf(out, "  skipped  %s\n", version)
	}
	for _, delta := range built.Deltas[min(1, len(built.Deltas)):] {
		added, removed := delta.Summary()
		fmt.Fprintf(out, "  delta    %-16s +%d -%d\n", delta.Version, added, removed)
	}
}

// watchPackage re-scans changed versions until interrupted.
func watchPackage(cmd *cobra.Command, store app.KnowledgeStore, pkg, dir string, opts app.BuildOptions, debounce time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.NewWatcher(dir, pkg, debounce, opts.Excludes, func(versions []string) {
		run := opts
		run.Force = versions
		built, err := app.BuildPackage(ctx, store, pkg, dir, run)
		if err != nil {
			slog.Error("re-scan failed", "package", pkg, "versions", versions, "error", err)
			return
		}
		printBuild(cmd.OutOrStdout(), built)
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	slog.Info("watching package sources", "package", pkg, "dir", dir)
	<-ctx.Done()
	return nil
}

func newDiffCmd(rt *session) *cobra.Command {
	var (
		format  string
		brief   bool
		rebuild bool
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:   "diff <package>",
		Short: "Print per-version API additions and removals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			pkg := strings.TrimSpace(args[0])

			store, err := rt.openKnowledge(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			diff, err := store.Diff(cmd.Context(), pkg)
			if rebuild || (err == nil && len(diff) == 0) {
				diff, err = app.RebuildDiff(cmd.Context(), store, pkg)
			}
			if err != nil {
				return fmt.Errorf("diff %s: %w", pkg, err)
			}
			if len(diff) == 0 {
				return fmt.Errorf("package %s has no scanned versions; run 'apidrift scan %s' first", pkg, pkg)
			}

			data, err := report.RenderDeltas(pkg, diff, f, brief)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", string(report.FormatYAML), "output format: yaml, json, tsv or markdown")
	cmd.Flags().BoolVar(&brief, "brief", false, "omit the API list of the first version")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "recompute deltas from stored signatures first")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "knowledge base path (default: paths.knowledge)")
	return cmd
}
