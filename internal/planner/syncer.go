package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
)

// Gateway is the remote-store view the syncer pulls from.
type Gateway interface {
	// FetchActive returns the user's non-archived tasks ordered by
	// creation time descending.
	FetchActive(ctx context.Context, userID uuid.UUID) ([]entities.Task, error)
}

// Syncer refreshes a Collection from the gateway with an
// at-most-one-outstanding-fetch contract: starting a refresh cancels any
// in-flight prior refresh, so a stale slow response can never clobber a
// newer one. Last issued wins, not last arrived.
type Syncer struct {
	gateway Gateway
	coll    *Collection
	logger  *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	gen     uint64
	lastErr error
}

// NewSyncer wires a syncer to its collection.
func NewSyncer(gateway Gateway, coll *Collection, log *logger.Logger) *Syncer {
	return &Syncer{gateway: gateway, coll: coll, logger: log}
}

// Refresh fetches the user's active tasks and replaces the collection.
// A refresh superseded by a newer one returns context.Canceled and leaves
// the collection untouched. On failure the previous task set is retained
// and the error is kept until the next successful refresh.
func (s *Syncer) Refresh(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	tasks, err := s.gateway.FetchActive(fetchCtx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// A newer refresh was issued while this one was in flight.
		return context.Canceled
	}
	// Release this refresh's derived context now that the fetch is done.
	cancel()
	s.cancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.lastErr = fmt.Errorf("fetch tasks: %w", err)
		s.logger.Errorw("Task refresh failed", "user_id", userID, "error", err)
		return s.lastErr
	}

	s.coll.ReplaceAll(tasks)
	s.lastErr = nil
	return nil
}

// Err returns the retained error from the most recent failed refresh, or
// nil after a successful one.
func (s *Syncer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
