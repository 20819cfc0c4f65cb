package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"apidrift/internal/core/ports"
	"apidrift/internal/data/queue"
	"apidrift/internal/engine/apidiff"
)

func TestRepairKnowledge(t *testing.T) {
	task := ports.RepairTask{
		Predicted: "df = pd.read_csv2(path, sep=';')",
		Signature: apidiff.API{Name: "pandas.read_csv", Params: []string{"filepath_or_buffer", "sep"}},
	}
	want := "Method `pd.read_csv2` is unavailable. Use `pandas.read_csv(filepath_or_buffer, sep)` at next line and revise arguments."
	if got := RepairKnowledge(task); got != want {
		t.Fatalf("unexpected knowledge\nwant %s\ngot  %s", want, got)
	}

	task.Predicted = "no call here"
	task.PredictedFQN = "pandas.read_csv2"
	if got := RepairKnowledge(task); !strings.HasPrefix(got, "Method `pandas.read_csv2`") {
		t.Fatalf("expected FQN fallback, got %s", got)
	}
}

func openSpool(t *testing.T) *queue.SQLiteSpool {
	t.Helper()
	spool, err := queue.OpenSQLiteSpool(filepath.Join(t.TempDir(), "repair.db"), "run")
	if err != nil {
		t.Fatalf("open spool: %v", err)
	}
	t.Cleanup(func() { _ = spool.Close() })
	return spool
}

func TestExportRepairs(t *testing.T) {
	ctx := context.Background()
	spool := openSpool(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := spool.Enqueue(ctx, ports.RepairTask{TaskID: id, Predicted: id + "()"}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	var buf bytes.Buffer
	n, err := ExportRepairs(ctx, spool, &buf, ExportOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("ExportRepairs failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 exported tasks, got %d", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 JSON lines, got %d", len(lines))
	}
	var first ports.RepairTask
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if first.TaskID != "a" || first.ID == "" {
		t.Fatalf("unexpected first task %+v", first)
	}

	pending, err := spool.PendingCount(ctx)
	if err != nil || pending != 0 {
		t.Fatalf("expected an empty spool, got %d (%v)", pending, err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExportRepairs_WriteFailureKeepsRows(t *testing.T) {
	ctx := context.Background()
	spool := openSpool(t)
	if err := spool.Enqueue(ctx, ports.RepairTask{TaskID: "a"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	n, err := ExportRepairs(ctx, spool, failingWriter{}, ExportOptions{})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected write error, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing exported, got %d", n)
	}
	pending, err := spool.PendingCount(ctx)
	if err != nil || pending != 1 {
		t.Fatalf("expected the row to stay spooled, got %d (%v)", pending, err)
	}

	// the nack pushed the row into the future
	rows, err := spool.DequeueBatch(ctx, 10)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no rows due yet, got %d (%v)", len(rows), err)
	}
}

func TestBackoffDelay(t *testing.T) {
	opts := ExportOptions{RetryBaseDelay: 100, RetryMaxDelay: 350}
	cases := map[int]int64{0: 100, 1: 100, 2: 200, 3: 350, 10: 350}
	for attempts, want := range cases {
		if got := backoffDelay(opts, attempts); int64(got) != want {
			t.Errorf("attempts=%d: expected %d, got %d", attempts, want, got)
		}
	}
}
