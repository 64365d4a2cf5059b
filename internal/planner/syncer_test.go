package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
)

// blockingGateway lets a test hold a fetch open until released.
type blockingGateway struct {
	mu      sync.Mutex
	tasks   []entities.Task
	err     error
	release chan struct{}
}

func (g *blockingGateway) FetchActive(ctx context.Context, userID uuid.UUID) ([]entities.Task, error) {
	g.mu.Lock()
	release := g.release
	tasks, err := g.tasks, g.err
	g.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return tasks, err
}

func (g *blockingGateway) set(tasks []entities.Task, err error) {
	g.mu.Lock()
	g.tasks, g.err = tasks, err
	g.mu.Unlock()
}

// ctxRecordingGateway keeps the context handed to the most recent fetch.
type ctxRecordingGateway struct {
	mu    sync.Mutex
	ctx   context.Context
	tasks []entities.Task
}

func (g *ctxRecordingGateway) FetchActive(ctx context.Context, userID uuid.UUID) ([]entities.Task, error) {
	g.mu.Lock()
	g.ctx = ctx
	g.mu.Unlock()
	return g.tasks, nil
}

func TestSyncer_Refresh_ReplacesCollection(t *testing.T) {
	coll, _ := newTestCollection()
	gw := &blockingGateway{tasks: []entities.Task{pooledTask("a"), pooledTask("b")}}
	s := NewSyncer(gw, coll, logger.NewNop())

	require.NoError(t, s.Refresh(context.Background(), uuid.New()))
	assert.Equal(t, 2, coll.Len())
	assert.NoError(t, s.Err())
}

func TestSyncer_Refresh_ReleasesFetchContext(t *testing.T) {
	coll, _ := newTestCollection()
	gw := &ctxRecordingGateway{tasks: []entities.Task{pooledTask("done")}}
	s := NewSyncer(gw, coll, logger.NewNop())

	require.NoError(t, s.Refresh(context.Background(), uuid.New()))

	gw.mu.Lock()
	fetchCtx := gw.ctx
	gw.mu.Unlock()
	assert.ErrorIs(t, fetchCtx.Err(), context.Canceled,
		"derived fetch context should be released once the refresh completes")
}

func TestSyncer_Refresh_FailureRetainsPreviousTasks(t *testing.T) {
	coll, _ := newTestCollection()
	gw := &blockingGateway{tasks: []entities.Task{pooledTask("keep me")}}
	s := NewSyncer(gw, coll, logger.NewNop())
	userID := uuid.New()

	require.NoError(t, s.Refresh(context.Background(), userID))

	gw.set(nil, errors.New("connection refused"))
	err := s.Refresh(context.Background(), userID)

	require.Error(t, err)
	assert.Equal(t, 1, coll.Len(), "previous task set should survive a failed refresh")
	assert.Error(t, s.Err())
}

func TestSyncer_Refresh_ErrClearedOnSuccess(t *testing.T) {
	coll, _ := newTestCollection()
	gw := &blockingGateway{err: errors.New("boom")}
	s := NewSyncer(gw, coll, logger.NewNop())
	userID := uuid.New()

	require.Error(t, s.Refresh(context.Background(), userID))
	require.Error(t, s.Err())

	gw.set([]entities.Task{pooledTask("recovered")}, nil)
	require.NoError(t, s.Refresh(context.Background(), userID))
	assert.NoError(t, s.Err())
}

func TestSyncer_NewerRefreshCancelsOlder(t *testing.T) {
	coll, _ := newTestCollection()
	release := make(chan struct{})
	gw := &blockingGateway{release: release, tasks: []entities.Task{pooledTask("slow")}}
	s := NewSyncer(gw, coll, logger.NewNop())
	userID := uuid.New()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.Refresh(context.Background(), userID)
	}()

	// Wait for the first fetch to be in flight.
	time.Sleep(20 * time.Millisecond)

	gw.set([]entities.Task{pooledTask("fast"), pooledTask("fresh")}, nil)
	gw.mu.Lock()
	gw.release = nil
	gw.mu.Unlock()

	require.NoError(t, s.Refresh(context.Background(), userID))

	err := <-firstDone
	assert.ErrorIs(t, err, context.Canceled)

	// The superseded fetch must not clobber the newer result.
	assert.Equal(t, 2, coll.Len())
	close(release)
}
