package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"lifelog/pulse-agent/internal/auth"
	"lifelog/pulse-agent/internal/client"
	"lifelog/pulse-agent/internal/models"
	"lifelog/pulse-agent/internal/queue"

	"go.uber.org/zap"
)

// ErrUnauthenticated is returned while syncing is suspended pending new
// credentials. The queue keeps accumulating; nothing is dropped.
var ErrUnauthenticated = errors.New("sync suspended: not authenticated")

// Engine drains the durable pending queue against the backend. One sync
// runs at a time; enqueues during a sync land in the next one because
// removal is by snapshot ids only.
type Engine struct {
	queue     *queue.ActivityQueue
	client    *client.APIClient
	tokens    *auth.Store
	deviceID  string
	batchSize int
	interval  time.Duration
	logger    *zap.Logger

	mu              sync.Mutex
	unauthenticated bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewEngine creates a sync engine.
func NewEngine(
	q *queue.ActivityQueue,
	c *client.APIClient,
	tokens *auth.Store,
	deviceID string,
	batchSize int,
	interval time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		queue:     q,
		client:    c,
		tokens:    tokens,
		deviceID:  deviceID,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Enqueue appends an activity to the durable queue. The record is
// persisted before Enqueue returns.
func (e *Engine) Enqueue(activity models.Activity) error {
	return e.queue.Enqueue(activity)
}

// Start begins the periodic drain loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.drainLoop()

	e.logger.Info("Sync engine started",
		zap.Duration("interval", e.interval),
		zap.Int("batch_size", e.batchSize),
	)
}

// Stop attempts one final sync and stops the loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	select {
	case <-e.stopChan:
		e.mu.Unlock()
		return
	default:
		close(e.stopChan)
	}
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info("Sync engine stopped")
}

func (e *Engine) drainLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.syncTick()
		case <-e.stopChan:
			// Final drain before releasing the timer.
			e.syncTick()
			return
		}
	}
}

func (e *Engine) syncTick() {
	ctx, cancel := context.WithTimeout(context.Background(), e.interval)
	defer cancel()

	count, err := e.SyncNow(ctx)
	if err != nil && !errors.Is(err, ErrUnauthenticated) {
		e.logger.Warn("Sync tick failed", zap.Error(err))
		return
	}
	if count > 0 {
		e.logger.Info("Synced queued activities", zap.Int("count", count))
	}
}

// SyncNow snapshots the current queue contents and posts them. On
// success exactly the snapshotted rows are removed and the sync cursor
// advances; on failure the queue is left untouched apart from retry
// bookkeeping.
func (e *Engine) SyncNow(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.unauthenticated {
		return 0, ErrUnauthenticated
	}

	activities, ids, err := e.queue.SnapshotPending(e.batchSize)
	if err != nil {
		return 0, err
	}
	if len(activities) == 0 {
		return 0, nil
	}

	accessToken, refreshToken := e.tokens.Credentials()
	if accessToken == "" {
		e.unauthenticated = true
		return 0, ErrUnauthenticated
	}

	req := models.SyncRequest{
		DeviceID:          e.deviceID,
		Activities:        activities,
		LastSyncTimestamp: e.tokens.LastSyncTimestamp(),
	}

	resp, err := e.client.SyncActivities(ctx, accessToken, req)

	var authErr *client.AuthError
	if errors.As(err, &authErr) {
		// Refresh once, then retry the same payload exactly once.
		refreshResp, refreshErr := e.client.RefreshToken(ctx, refreshToken)
		if refreshErr != nil {
			e.unauthenticated = true
			e.logger.Error("Token refresh failed, sync suspended", zap.Error(refreshErr))
			return 0, ErrUnauthenticated
		}
		if err := e.tokens.SetCredentials(refreshResp.AccessToken, refreshResp.RefreshToken); err != nil {
			return 0, err
		}
		resp, err = e.client.SyncActivities(ctx, refreshResp.AccessToken, req)
		if errors.As(err, &authErr) {
			e.unauthenticated = true
			return 0, ErrUnauthenticated
		}
	}

	if err != nil {
		var malformed *client.MalformedError
		if errors.As(err, &malformed) {
			// The backend rejected the payload itself. Quarantine the
			// batch so later records keep flowing; the rows remain for
			// manual intervention.
			if blockErr := e.queue.MarkBlocked(ids); blockErr != nil {
				e.logger.Error("Failed to quarantine rejected batch", zap.Error(blockErr))
			}
			return 0, err
		}

		if retryErr := e.queue.IncrementRetry(ids); retryErr != nil {
			e.logger.Error("Failed to record retry", zap.Error(retryErr))
		}
		return 0, err
	}

	// Remove exactly the snapshotted rows; anything enqueued while the
	// request was in flight stays for the next sync.
	if err := e.queue.Remove(ids); err != nil {
		return 0, err
	}

	completedAt := resp.ServerTimestamp
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	if err := e.tokens.AdvanceLastSync(completedAt); err != nil {
		e.logger.Error("Failed to advance sync cursor", zap.Error(err))
	}

	return len(activities), nil
}

// SetCredentials supplies a fresh token pair and resumes syncing.
func (e *Engine) SetCredentials(accessToken, refreshToken string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tokens.SetCredentials(accessToken, refreshToken); err != nil {
		return err
	}
	e.unauthenticated = false
	e.logger.Info("Credentials updated, sync resumed")
	return nil
}

// Unauthenticated reports whether syncing is suspended.
func (e *Engine) Unauthenticated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unauthenticated
}
