package cli

import (
	"fmt"

	"apidrift/internal/data/knowledge"
	"apidrift/internal/data/queue"
)

// openKnowledge opens the knowledge base at the configured path, or at
// override when set.
func (rt *session) openKnowledge(override string) (*knowledge.Store, error) {
	path := rt.paths.Knowledge
	if override != "" {
		path = override
	}
	store, err := knowledge.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	return store, nil
}

func (rt *session) openSpool(runKey string) (*queue.SQLiteSpool, error) {
	spool, err := queue.OpenSQLiteSpool(rt.paths.Queue, runKey)
	if err != nil {
		return nil, fmt.Errorf("open repair spool: %w", err)
	}
	return spool, nil
}
