package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"apidrift/internal/core/ports"
	"apidrift/internal/engine/callsite"
	"apidrift/internal/shared/observability"
)

// RepairKnowledge renders the hint placed above the broken line.
func RepairKnowledge(task ports.RepairTask) string {
	name, ok := callsite.FirstCallName(task.Predicted)
	if !ok {
		name = task.PredictedFQN
	}
	return fmt.Sprintf("Method `%s` is unavailable. Use `%s(%s)` at next line and revise arguments.",
		name, task.Signature.Name, strings.Join(task.Signature.Params, ", "))
}

// ExportOptions tune ExportRepairs.
type ExportOptions struct {
	BatchSize      int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// ExportRepairs drains the spool into w as JSON lines. Rows are acked after
// their batch is written; a failed write nacks the batch with backoff and
// stops. It returns the number of exported tasks.
func ExportRepairs(ctx context.Context, spool ports.RepairSpool, w io.Writer, opts ExportOptions) (int, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	enc := json.NewEncoder(w)
	exported := 0
	for {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		rows, err := spool.DequeueBatch(ctx, batchSize)
		if err != nil {
			return exported, err
		}
		if len(rows) == 0 {
			updateSpoolDepth(ctx, spool)
			return exported, nil
		}

		if err := writeRows(enc, rows); err != nil {
			next := time.Now().Add(backoffDelay(opts, maxAttempts(rows)+1))
			if nackErr := spool.Nack(ctx, rows, next, err.Error()); nackErr != nil {
				slog.Warn("repair spool nack failed", "error", nackErr, "count", len(rows))
			}
			return exported, errors.Join(err, ctx.Err())
		}

		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if err := spool.Ack(ctx, ids); err != nil {
			return exported, err
		}
		exported += len(rows)
		updateSpoolDepth(ctx, spool)
	}
}

func writeRows(enc *json.Encoder, rows []ports.SpoolRow) error {
	for _, row := range rows {
		if err := enc.Encode(row.Task); err != nil {
			return err
		}
	}
	return nil
}

func maxAttempts(rows []ports.SpoolRow) int {
	n := 0
	for _, row := range rows {
		if row.Attempts > n {
			n = row.Attempts
		}
	}
	return n
}

func backoffDelay(opts ExportOptions, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := opts.RetryBaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := opts.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func updateSpoolDepth(ctx context.Context, spool ports.RepairSpool) {
	if count, err := spool.PendingCount(ctx); err == nil {
		observability.RepairQueueDepth.Set(float64(count))
	}
}
