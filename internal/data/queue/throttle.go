package queue

import (
	"context"

	"apidrift/internal/core/ports"

	"golang.org/x/time/rate"
)

// ThrottledSink paces hand-offs to an inner sink with a token bucket.
// Enqueue waits for a token, so a cancelled context aborts the wait.
type ThrottledSink struct {
	inner   ports.RepairSink
	limiter *rate.Limiter
}

var _ ports.RepairSink = (*ThrottledSink)(nil)

// Throttle wraps sink at perSecond tasks with the given burst. A non-positive
// rate returns sink unchanged.
func Throttle(sink ports.RepairSink, perSecond float64, burst int) ports.RepairSink {
	if perSecond <= 0 {
		return sink
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledSink{inner: sink, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (s *ThrottledSink) Enqueue(ctx context.Context, task ports.RepairTask) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.inner.Enqueue(ctx, task)
}
