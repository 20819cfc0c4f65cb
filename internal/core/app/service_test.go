package app

import (
	"context"
	"strings"
	"testing"

	"apidrift/internal/core/errors"
	"apidrift/internal/data/queue"
	"apidrift/internal/engine/apidiff"
	"apidrift/internal/engine/apiscan"
	"apidrift/internal/engine/classify"
	"apidrift/internal/engine/requirements"
)

type stubSource struct {
	apis  map[string]map[string][]apidiff.API
	calls int
}

func (s *stubSource) Signatures(_ context.Context, pkg, version string) ([]apidiff.API, error) {
	s.calls++
	apis, ok := s.apis[pkg][version]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "unknown version")
	}
	return apis, nil
}

func (s *stubSource) Versions(_ context.Context, pkg string) ([]string, error) {
	var out []string
	for v := range s.apis[pkg] {
		out = append(out, v)
	}
	apiscan.SortVersions(out)
	return out, nil
}

func numpySource() *stubSource {
	return &stubSource{apis: map[string]map[string][]apidiff.API{
		"numpy": {
			"1.0": {
				{Name: "numpy.asarray", Params: []string{"a"}, HasReturn: true},
				{Name: "numpy.float_", Params: []string{"x"}, HasReturn: true},
			},
			"2.0": {
				{Name: "numpy.asarray", Params: []string{"a", "dtype"}, HasReturn: true, Optional: []string{"dtype"}},
			},
		},
	}}
}

func TestEvaluate_InlineSignatures(t *testing.T) {
	sink := queue.NewMemoryQueue(8)
	svc := NewService(Options{Sink: sink, Workers: 2})
	sig := &apidiff.API{Name: "numpy.asarray", Params: []string{"a", "dtype"}, Optional: []string{"dtype"}}
	source := "import numpy as np\n"

	tasks := []Task{
		{ID: "exact", Package: "numpy", Version: "==1.26.0", Source: source, Predicted: "np.asarray(x)", GroundTruth: "np.asarray(x)", Signature: sig},
		{ID: "renamed", Package: "numpy", Version: "==1.26.0", Source: source, Predicted: "np.array(x)", GroundTruth: "np.asarray(x)", Signature: sig},
		{ID: "ranged", Package: "numpy", Version: ">=1.20", Source: source, Predicted: "np.array(x)", GroundTruth: "np.asarray(x)", Signature: sig},
		{ID: "empty", Package: "numpy", Predicted: "  ", GroundTruth: "np.asarray(x)", Signature: sig},
		{ID: "plain", Package: "numpy", Predicted: "x = 1", GroundTruth: "np.asarray(x)", Signature: sig},
	}

	summary, results, err := svc.Evaluate(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}

	want := map[string]classify.Outcome{
		"exact":   classify.Correct,
		"renamed": classify.BCR,
		"ranged":  classify.BCR,
		"empty":   classify.Empty,
		"plain":   classify.Other,
	}
	for i, res := range results {
		if res.TaskID != tasks[i].ID {
			t.Fatalf("result %d out of order: %s", i, res.TaskID)
		}
		if res.Verdict.Outcome != want[res.TaskID] {
			t.Errorf("%s: expected %v, got %v", res.TaskID, want[res.TaskID], res.Verdict.Outcome)
		}
	}

	if summary.Total != 5 || summary.Skipped != 0 {
		t.Fatalf("unexpected totals %+v", summary)
	}
	if summary.Outcomes[classify.BCR] != 2 {
		t.Fatalf("expected 2 BCR, got %d", summary.Outcomes[classify.BCR])
	}
	if summary.ByConstraint[requirements.Pinned][classify.BCR] != 1 ||
		summary.ByConstraint[requirements.Range][classify.BCR] != 1 {
		t.Fatalf("unexpected constraint breakdown %+v", summary.ByConstraint)
	}

	if summary.Repairs != 1 || sink.Len() != 1 {
		t.Fatalf("only the pinned BCR should be handed off, got repairs=%d queued=%d", summary.Repairs, sink.Len())
	}
	batch, err := sink.DequeueBatch(context.Background(), 4, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	repair := batch[0]
	if repair.TaskID != "renamed" || repair.PredictedFQN != "numpy.array" || repair.Reason != classify.ReasonNameMismatch {
		t.Fatalf("unexpected repair task %+v", repair)
	}
	if repair.Version != "1.26.0" {
		t.Fatalf("expected pinned version on repair task, got %q", repair.Version)
	}
	if !strings.Contains(repair.Knowledge, "Method `np.array` is unavailable") {
		t.Fatalf("unexpected knowledge %q", repair.Knowledge)
	}
}

func TestEvaluate_RepairAll(t *testing.T) {
	sink := queue.NewMemoryQueue(8)
	svc := NewService(Options{Sink: sink, RepairAll: true})
	sig := &apidiff.API{Name: "f", Params: []string{"a"}}

	summary, _, err := svc.Evaluate(context.Background(), []Task{
		{ID: "1", Package: "pkg", Predicted: "g(1)", GroundTruth: "f(1)", Signature: sig},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if summary.Repairs != 1 || sink.Len() != 1 {
		t.Fatalf("expected an unconstrained BCR to be handed off, got %d", summary.Repairs)
	}
}

func TestEvaluate_KnowledgeLookup(t *testing.T) {
	src := numpySource()
	svc := NewService(Options{Source: src, Workers: 1})

	tasks := []Task{
		{ID: "params", Package: "numpy", Version: "==2.0", Source: "import numpy as np\n",
			Predicted: "np.asarray(a, b)", GroundTruth: "np.asarray(a)"},
		{ID: "latest", Package: "numpy", Source: "import numpy as np\n",
			Predicted: "np.asarray(a)", GroundTruth: "np.asarray(a)"},
		{ID: "explicit-api", Package: "numpy", Version: "~~1.0", API: "numpy.float_",
			Predicted: "numpy.float_(1)", GroundTruth: "numpy.float_(2)"},
		{ID: "gone", Package: "numpy", Version: "==2.0", Source: "import numpy as np\n",
			Predicted: "np.float_(1)", GroundTruth: "np.float_(1)"},
		{ID: "unknown-pkg", Package: "scipy", Version: "==1.0",
			Predicted: "scipy.f(1)", GroundTruth: "scipy.f(1)"},
	}

	summary, results, err := svc.Evaluate(context.Background(), tasks)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.TaskID] = r
	}

	params := byID["params"]
	if params.Error != "" || params.Verdict.Outcome != classify.BCR || params.Verdict.Reason != classify.ReasonArgumentCount {
		t.Fatalf("unexpected params result %+v", params)
	}
	if params.Shift != apidiff.ShiftParameters {
		t.Fatalf("expected parameters shift, got %q", params.Shift)
	}

	if latest := byID["latest"]; latest.Version != "2.0" || latest.Verdict.Outcome != classify.Correct {
		t.Fatalf("expected lookup against the newest version, got %+v", latest)
	}

	explicit := byID["explicit-api"]
	if explicit.Constraint != requirements.Unconstrained || explicit.Version != "1.0" {
		t.Fatalf("unexpected explicit-api result %+v", explicit)
	}
	if explicit.Shift != apidiff.ShiftName {
		t.Fatalf("an API missing from a later version should be a name shift, got %q", explicit.Shift)
	}

	if byID["gone"].Error == "" || byID["unknown-pkg"].Error == "" {
		t.Fatalf("expected lookup failures, got %+v / %+v", byID["gone"], byID["unknown-pkg"])
	}
	if summary.Skipped != 2 {
		t.Fatalf("expected 2 skipped tasks, got %d", summary.Skipped)
	}
	if summary.ByShift[apidiff.ShiftParameters][classify.BCR] != 1 {
		t.Fatalf("unexpected shift breakdown %+v", summary.ByShift)
	}
}

func TestEvaluate_SignatureSnapshotCached(t *testing.T) {
	src := numpySource()
	svc := NewService(Options{Source: src, Workers: 1})
	task := Task{ID: "t", Package: "numpy", Version: "==1.0", API: "numpy.asarray",
		Predicted: "numpy.asarray(a)", GroundTruth: "numpy.asarray(a)"}

	if _, _, err := svc.Evaluate(context.Background(), []Task{task, task, task}); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// one read per version: 1.0 for lookups, 2.0 for the shift scan
	if src.calls != 2 {
		t.Fatalf("expected 2 signature reads, got %d", src.calls)
	}
}

func TestEvaluate_NoSignatureWithoutSource(t *testing.T) {
	svc := NewService(Options{})
	summary, results, err := svc.Evaluate(context.Background(), []Task{
		{ID: "x", Package: "numpy", Predicted: "f()", GroundTruth: "f()"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if summary.Skipped != 1 || results[0].Error == "" {
		t.Fatalf("expected the task to be skipped, got %+v", results[0])
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(Options{})
	sig := &apidiff.API{Name: "f"}
	if _, _, err := svc.Evaluate(ctx, []Task{{ID: "1", Predicted: "f()", GroundTruth: "f()", Signature: sig}}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestEvaluate_SourceFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "proj/model.py", "from sklearn.linear_model import LinearRegression as LR\n")
	svc := NewService(Options{SourceRoot: root})
	sig := &apidiff.API{Name: "sklearn.linear_model.LinearRegression", Params: []string{"self", "fit_intercept"}}

	_, results, err := svc.Evaluate(context.Background(), []Task{
		{ID: "1", Package: "scikit-learn", SourceFile: "proj/model.py",
			Predicted: "LR(True)", GroundTruth: "LR(fit_intercept=True)", Signature: sig},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := results[0].Verdict.PredictedFQN; got != "sklearn.linear_model.LinearRegression" {
		t.Fatalf("expected the alias to resolve through the source file, got %q", got)
	}
}

func TestSignatureCache_FirstShiftWins(t *testing.T) {
	src := &stubSource{apis: map[string]map[string][]apidiff.API{
		"pkg": {
			"1.0": {{Name: "pkg.load", Params: []string{"path"}}, {Name: "pkg.save", Params: []string{"obj"}}},
			"2.0": {{Name: "pkg.load", Params: []string{"path", "mode"}}, {Name: "pkg.open", Params: []string{"path"}}},
			"3.0": {{Name: "pkg.open", Params: []string{"path"}, HasReturn: true}},
		},
	}}
	cache := newSignatureCache(src, 8)

	cases := map[string]apidiff.ShiftKind{
		"pkg.load": apidiff.ShiftParameters, // changed in 2.0, gone in 3.0
		"pkg.save": apidiff.ShiftName,
		"pkg.open": apidiff.ShiftName, // added in 2.0 before its return changed
	}
	for name, want := range cases {
		got, ok, err := cache.shift(context.Background(), "pkg", name)
		if err != nil || !ok || got != want {
			t.Fatalf("shift(%s) = %q, %v, %v; want %q", name, got, ok, err, want)
		}
	}
	if _, ok, _ := cache.shift(context.Background(), "pkg", "pkg.missing"); ok {
		t.Fatal("expected no shift for an API never declared")
	}
}
