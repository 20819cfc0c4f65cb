// Package app runs classification over task batches and hands breaking
// predictions to the repair sink.
package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"apidrift/internal/core/errors"
	"apidrift/internal/core/ports"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/callsite"
	"apidrift/internal/engine/classify"
	"apidrift/internal/engine/parser"
	"apidrift/internal/engine/requirements"
	"apidrift/internal/engine/resolver"
	"apidrift/internal/shared/observability"
	"apidrift/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Options configure a Service. Zero values are usable.
type Options struct {
	// Source resolves signatures for tasks without an inline one.
	Source ports.SignatureSource
	// Sink receives repair tasks. nil disables hand-off.
	Sink ports.RepairSink
	// Workers bounds concurrent task evaluation. Zero means GOMAXPROCS.
	Workers int
	// RepairAll hands off every BCR outcome instead of pinned ones only.
	RepairAll bool
	// SourceRoot anchors relative Task.SourceFile paths.
	SourceRoot string
	// CacheSize bounds the package versions whose signatures stay in
	// memory. Zero means 256.
	CacheSize int
}

type Service struct {
	opts  Options
	cache *signatureCache
}

func NewService(opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	s := &Service{opts: opts}
	if opts.Source != nil {
		s.cache = newSignatureCache(opts.Source, opts.CacheSize)
	}
	return s
}

// Result is the evaluation of one task.
type Result struct {
	TaskID     string                      `json:"task_id"`
	Verdict    classify.Verdict            `json:"verdict"`
	Constraint requirements.ConstraintKind `json:"constraint"`
	Shift      apidiff.ShiftKind           `json:"shift,omitempty"`
	Version    string                      `json:"version,omitempty"`
	Repaired   bool                        `json:"repair_enqueued,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// Evaluate classifies tasks concurrently. Per-task failures such as a
// missing signature are recorded on the Result and in Summary.Skipped; only
// cancellation aborts the run. Results keep the order of tasks.
func (s *Service) Evaluate(ctx context.Context, tasks []Task) (*Summary, []Result, error) {
	runID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "app.Evaluate", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("tasks", len(tasks)),
	))
	defer span.End()

	started := time.Now()
	summary := NewSummary(runID)
	results := make([]Result, len(tasks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range tasks {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := s.evaluateTask(gctx, tasks[i])
			results[i] = res
			mu.Lock()
			summary.record(res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	summary.Elapsed = time.Since(started)
	slog.Info("evaluation finished",
		"run_id", runID,
		"tasks", summary.Total,
		"skipped", summary.Skipped,
		"repairs", summary.Repairs,
		"elapsed", summary.Elapsed,
		"parsed_units", parser.DefaultPool().Stats().Parsed,
		"heap_mb", util.HeapAllocMB())
	return summary, results, nil
}

func (s *Service) evaluateTask(ctx context.Context, task Task) Result {
	ctx, span := observability.Tracer.Start(ctx, "app.evaluateTask",
		trace.WithAttributes(attribute.String("task_id", task.ID)))
	defer span.End()
	started := time.Now()
	defer func() { observability.ClassifyDuration.Observe(time.Since(started).Seconds()) }()

	res := Result{TaskID: task.ID, Constraint: task.ConstraintKind(), Shift: task.Shift}
	bindings := s.bindings(task)

	sig, version, err := s.signature(ctx, task, bindings)
	res.Version = version
	if err != nil {
		observability.SignatureLookupErrorsTotal.Inc()
		slog.Warn("skipping task without signature", "task", task.ID, "package", task.Package, "error", err)
		span.RecordError(err)
		res.Error = err.Error()
		return res
	}

	verdict, err := classify.Classify(bindings, task.Predicted, task.GroundTruth, &sig)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Verdict = verdict
	observability.ClassificationsTotal.WithLabelValues(verdict.Outcome.String()).Inc()
	span.SetAttributes(attribute.String("outcome", verdict.Outcome.String()))

	if res.Shift == "" && s.cache != nil && task.Package != "" {
		if kind, ok, err := s.cache.shift(ctx, task.Package, sig.Name); err == nil && ok {
			res.Shift = kind
		}
	}

	if s.wantsRepair(res) {
		res.Repaired = s.enqueueRepair(ctx, task, verdict, sig, version)
	}
	return res
}

func (s *Service) bindings(task Task) *resolver.Bindings {
	switch {
	case task.Source != "":
		return resolver.ResolveSource([]byte(task.Source))
	case task.SourceFile != "":
		path := task.SourceFile
		if !filepath.IsAbs(path) && s.opts.SourceRoot != "" {
			path = filepath.Join(s.opts.SourceRoot, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("task source unreadable, resolving without bindings", "task", task.ID, "path", path, "error", err)
			return nil
		}
		return resolver.ResolveSource(content)
	}
	return nil
}

// signature returns the inline signature, or looks up the ground truth's
// callee in the knowledge base.
func (s *Service) signature(ctx context.Context, task Task, bindings *resolver.Bindings) (apidiff.API, string, error) {
	if task.Signature != nil {
		return *task.Signature, task.LookupVersion(), nil
	}
	if s.cache == nil {
		return apidiff.API{}, "", errors.AddContext(
			errors.New(errors.CodeValidationError, "no inline signature and no knowledge base configured"),
			errors.CtxTask, task.ID)
	}
	name := task.API
	if name == "" {
		name = expectedCallee(bindings, task.GroundTruth)
	}
	if name == "" {
		return apidiff.API{}, "", errors.AddContext(
			errors.New(errors.CodeValidationError, "ground truth names no callable"),
			errors.CtxTask, task.ID)
	}
	sig, version, err := s.cache.lookup(ctx, task.Package, task.LookupVersion(), name)
	if err != nil {
		return apidiff.API{}, version, errors.AddContext(err, errors.CtxTask, task.ID)
	}
	return sig, version, nil
}

func expectedCallee(bindings *resolver.Bindings, groundTruth string) string {
	ex := callsite.ExtractOutermost(groundTruth)
	defer ex.Close()
	if !ex.HasCall() {
		return ""
	}
	return bindings.Normalize(ex.Call.Name)
}

func (s *Service) wantsRepair(res Result) bool {
	if s.opts.Sink == nil || res.Verdict.Outcome != classify.BCR {
		return false
	}
	return s.opts.RepairAll || res.Constraint == requirements.Pinned
}

func (s *Service) enqueueRepair(ctx context.Context, task Task, verdict classify.Verdict, sig apidiff.API, version string) bool {
	repair := ports.RepairTask{
		TaskID:       task.ID,
		Package:      task.Package,
		Version:      version,
		Predicted:    task.Predicted,
		PredictedFQN: verdict.PredictedFQN,
		GroundTruth:  task.GroundTruth,
		Reason:       verdict.Reason,
		Signature:    sig,
	}
	repair.Knowledge = RepairKnowledge(repair)
	if err := s.opts.Sink.Enqueue(ctx, repair); err != nil {
		observability.RepairDroppedTotal.Inc()
		slog.Warn("repair hand-off failed", "task", task.ID, "error", err)
		return false
	}
	observability.RepairEnqueuedTotal.Inc()
	return true
}
