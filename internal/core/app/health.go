package app

import (
	"context"

	"apidrift/internal/core/ports"
	"apidrift/internal/shared/observability"
)

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecks reports the knowledge base and the repair spool. Either may
// be nil when the command does not use it.
func HealthChecks(knowledge Pinger, spool ports.RepairSpool) observability.HealthFunc {
	return func(ctx context.Context) map[string]error {
		out := make(map[string]error, 2)
		if knowledge != nil {
			out["knowledge"] = knowledge.Ping(ctx)
		}
		if spool != nil {
			count, err := spool.PendingCount(ctx)
			out["repair_spool"] = err
			if err == nil {
				observability.RepairQueueDepth.Set(float64(count))
			}
		}
		return out
	}
}
