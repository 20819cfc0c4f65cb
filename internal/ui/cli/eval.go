package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"apidrift/internal/core/app"
	"apidrift/internal/core/ports"
	"apidrift/internal/data/queue"
	"apidrift/internal/shared/observability"
	"apidrift/internal/shared/util"
	"apidrift/internal/ui/report"
	"apidrift/internal/ui/report/formats"

	"github.com/spf13/cobra"
)

type evalFlags struct {
	model       string
	format      string
	outDir      string
	name        string
	inject      string
	metricsAddr string
	queueKind   string
	runKey      string
	dbPath      string
	workers     int
	repairAll   bool
}

func newEvalCmd(rt *session) *cobra.Command {
	var f evalFlags

	cmd := &cobra.Command{
		Use:   "eval <tasks.jsonl>",
		Short: "Classify a task batch and write the evaluation report",
		Long: `Classify every task of a JSONL batch, print the summary and write
<out>/<name>.{tsv,md,json} plus the per-task <name>_tasks.tsv.

Breaking predictions are handed to the repair queue: the SQLite spool at
paths.queue (drain it with 'apidrift repairs export') or, with
eval.queue = "memory", straight into <out>/<name>_repairs.jsonl.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runEval(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.model, "model", "", "model name recorded in the report")
	cmd.Flags().StringVar(&f.format, "format", string(report.FormatMarkdown), "summary format printed to stdout: markdown, tsv or json")
	cmd.Flags().StringVar(&f.outDir, "out", "", "report directory (default: paths.output)")
	cmd.Flags().StringVar(&f.name, "name", "", "report file base name (default: model, else the tasks file name)")
	cmd.Flags().StringVar(&f.inject, "inject", "", "inject the summary tables into a Markdown file, as <file>:<marker>")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address during the run")
	cmd.Flags().StringVar(&f.queueKind, "queue", "", "repair queue: sqlite or memory (default: eval.queue)")
	cmd.Flags().StringVar(&f.runKey, "run", "", "spool run key (default: the report name)")
	cmd.Flags().StringVar(&f.dbPath, "db-path", "", "knowledge base path (default: paths.knowledge)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent task evaluations (default: eval.workers)")
	cmd.Flags().BoolVar(&f.repairAll, "repair-all", false, "hand off every breaking prediction, not just pinned ones")
	return cmd
}

func (rt *session) runEval(cmd *cobra.Command, tasksPath string, f evalFlags) error {
	ctx := cmd.Context()
	cfg := rt.cfg

	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}
	if format == report.FormatYAML {
		return fmt.Errorf("summary format yaml is not supported")
	}
	injectFile, injectMarker, err := parseInject(f.inject)
	if err != nil {
		return err
	}

	tasks, err := readTaskFile(tasksPath)
	if err != nil {
		return err
	}

	name := f.name
	if name == "" {
		name = f.model
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(tasksPath), filepath.Ext(tasksPath))
	}
	outDir := rt.paths.Output
	if f.outDir != "" {
		outDir = f.outDir
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.EnableTracing,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	store, err := rt.openKnowledge(f.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	queueKind := cfg.Eval.Queue
	if f.queueKind != "" {
		queueKind = f.queueKind
	}
	var (
		sink     ports.RepairSink
		spool    ports.RepairSpool
		memQueue *queue.MemoryQueue
	)
	switch strings.ToLower(strings.TrimSpace(queueKind)) {
	case "memory":
		memQueue = queue.NewMemoryQueue(cfg.Eval.QueueCapacity)
		sink = memQueue
	case "sqlite":
		runKey := f.runKey
		if runKey == "" {
			runKey = name
		}
		s, err := rt.openSpool(runKey)
		if err != nil {
			return err
		}
		defer s.Close()
		sink, spool = s, s
	default:
		return fmt.Errorf("unknown repair queue %q (sqlite, memory)", queueKind)
	}
	sink = queue.Throttle(sink, cfg.Eval.RepairRate, cfg.Eval.RepairBurst)

	metricsAddr := f.metricsAddr
	if metricsAddr == "" && cfg.Observability.Enabled {
		metricsAddr = cfg.Observability.MetricsAddress
	}
	if metricsAddr != "" {
		srv := observability.NewServer(metricsAddr, app.HealthChecks(store, spool))
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(stopCtx)
		}()
		slog.Info("metrics server listening", "addr", srv.Addr())
	}

	workers := cfg.Eval.Workers
	if f.workers > 0 {
		workers = f.workers
	}
	svc := app.NewService(app.Options{
		Source:     store,
		Sink:       sink,
		Workers:    workers,
		RepairAll:  f.repairAll || !cfg.Eval.PinnedOnly(),
		SourceRoot: filepath.Dir(tasksPath),
		CacheSize:  cfg.Eval.CacheSize,
	})
	summary, results, err := svc.Evaluate(ctx, tasks)
	if err != nil {
		return err
	}

	mdOpts := formats.MarkdownReportOptions{
		Model:       f.model,
		Version:     versionString,
		GeneratedAt: time.Now().UTC(),
	}
	written, err := report.WriteSummaryFiles(outDir, name, summary, results, mdOpts)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if memQueue != nil {
		path := filepath.Join(outDir, name+"_repairs.jsonl")
		n, err := drainMemoryQueue(ctx, memQueue, path)
		if err != nil {
			return fmt.Errorf("write repairs: %w", err)
		}
		if n > 0 {
			written = append(written, path)
		}
	}
	if injectFile != "" {
		if err := report.InjectSection(injectFile, injectMarker, formats.NewMarkdownGenerator().Tables(summary)); err != nil {
			return fmt.Errorf("inject summary: %w", err)
		}
		written = append(written, injectFile)
	}
	for _, path := range written {
		slog.Info("report written", "path", path)
	}

	data, err := report.RenderSummary(summary, format, mdOpts)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func readTaskFile(path string) ([]app.Task, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	defer file.Close()
	tasks, err := app.ReadTasks(file)
	if err != nil {
		return nil, fmt.Errorf("read tasks %s: %w", path, err)
	}
	return tasks, nil
}

// parseInject splits "<file>:<marker>". The marker is taken after the last
// colon so Windows drive letters survive.
func parseInject(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", nil
	}
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", fmt.Errorf("--inject must be formatted as <file>:<marker>")
	}
	return raw[:idx], raw[idx+1:], nil
}

// drainMemoryQueue closes q and writes what it held to path as JSON lines.
// Nothing is written for an empty queue.
func drainMemoryQueue(ctx context.Context, q *queue.MemoryQueue, path string) (int, error) {
	if err := q.Close(); err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	count := 0
	for {
		batch, err := q.DequeueBatch(ctx, 256, 0)
		for _, task := range batch {
			if encErr := enc.Encode(task); encErr != nil {
				return count, encErr
			}
			count++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}
		if len(batch) == 0 {
			break
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, util.WriteFileWithDirs(path, buf.Bytes(), 0o644)
}
