package ports

import (
	"context"
	"time"

	"apidrift/internal/engine/apidiff"
)

// SignatureSource is the read side of the API knowledge base.
type SignatureSource interface {
	// Signatures returns every API of pkg at version. An unknown version
	// is a NOT_FOUND domain error.
	Signatures(ctx context.Context, pkg, version string) ([]apidiff.API, error)
	// Versions returns the known versions of pkg, oldest first.
	Versions(ctx context.Context, pkg string) ([]string, error)
}

// RepairTask hands a breaking prediction to a downstream repair step.
type RepairTask struct {
	ID           string      `json:"id"`
	TaskID       string      `json:"task_id"`
	Package      string      `json:"package,omitempty"`
	Version      string      `json:"version,omitempty"`
	Predicted    string      `json:"predicted"`
	PredictedFQN string      `json:"predicted_fqn"`
	GroundTruth  string      `json:"ground_truth"`
	Reason       string      `json:"reason"`
	Signature    apidiff.API `json:"signature"`
	Knowledge    string      `json:"knowledge"`
	CreatedAt    time.Time   `json:"created_at"`
}

// RepairSink accepts repair tasks.
type RepairSink interface {
	Enqueue(ctx context.Context, task RepairTask) error
}

// SpoolRow is a persisted repair task with its delivery attempts.
type SpoolRow struct {
	ID       int64
	Task     RepairTask
	Attempts int
}

// RepairSpool is a durable RepairSink consumers drain in batches.
type RepairSpool interface {
	RepairSink
	DequeueBatch(ctx context.Context, maxItems int) ([]SpoolRow, error)
	Ack(ctx context.Context, ids []int64) error
	Nack(ctx context.Context, rows []SpoolRow, nextAttemptAt time.Time, lastErr string) error
	PendingCount(ctx context.Context) (int, error)
	Close() error
}
