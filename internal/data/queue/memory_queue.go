package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"apidrift/internal/core/ports"

	"github.com/google/uuid"
)

var (
	ErrQueueFull   = errors.New("repair queue is full")
	ErrQueueClosed = errors.New("repair queue is closed")
)

var _ ports.RepairSink = (*MemoryQueue)(nil)

// MemoryQueue is a bounded in-process RepairSink used for dry runs.
// Enqueue never blocks: a full queue rejects the task.
type MemoryQueue struct {
	ch     chan ports.RepairTask
	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan ports.RepairTask, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task ports.RepairTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// DequeueBatch waits up to wait for a first task, then drains whatever else
// is immediately available up to maxItems. io.EOF signals a closed, drained
// queue.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.RepairTask, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	batch := make([]ports.RepairTask, 0, maxItems)

	var timer <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timer = t.C
	}

	select {
	case task, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		batch = append(batch, task)
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		if wait <= 0 {
			return nil, nil
		}
		select {
		case task, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			batch = append(batch, task)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer:
			return nil, nil
		}
	}

	for len(batch) < maxItems {
		select {
		case task, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, task)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}
