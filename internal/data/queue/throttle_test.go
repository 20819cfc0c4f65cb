package queue

import (
	"context"
	"testing"
	"time"

	"apidrift/internal/core/ports"
)

func TestThrottle_ZeroRateIsPassthrough(t *testing.T) {
	q := NewMemoryQueue(4)
	if got := Throttle(q, 0, 0); got != ports.RepairSink(q) {
		t.Fatalf("expected the inner sink back, got %T", got)
	}
}

func TestThrottle_PacesAfterBurst(t *testing.T) {
	q := NewMemoryQueue(8)
	sink := Throttle(q, 20, 2)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := sink.Enqueue(context.Background(), ports.RepairTask{TaskID: "t"}); err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("third enqueue should wait for a token, took %v", elapsed)
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 queued tasks, got %d", q.Len())
	}
}

func TestThrottle_CancelledWait(t *testing.T) {
	q := NewMemoryQueue(8)
	sink := Throttle(q, 0.1, 1)
	if err := sink.Enqueue(context.Background(), ports.RepairTask{TaskID: "first"}); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sink.Enqueue(ctx, ports.RepairTask{TaskID: "second"}); err == nil {
		t.Fatal("expected the wait to fail under a short deadline")
	}
	if q.Len() != 1 {
		t.Fatalf("expected only the first task, got %d", q.Len())
	}
}
