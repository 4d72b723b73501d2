package trail

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"watchtrail/logger"
	"watchtrail/model"
)

// Scheduler owns the flush loop: every interval it drains the pending
// queue to the backend, if one is configured, and reconciles the queue
// and session with the outcome. All state lives on the scheduler; there
// are no package globals.
type Scheduler struct {
	queue      *Queue
	session    *Session
	client     *Client
	backendURL func() string // consulted every tick; may change at runtime
	interval   time.Duration

	mu         sync.Mutex
	lastSyncAt time.Time
}

// NewScheduler wires a scheduler over its collaborators. backendURL is
// read on every tick so configuration changes take effect without a
// restart; it returning "" means no backend is configured.
func NewScheduler(queue *Queue, session *Session, client *Client, backendURL func() string, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		queue:      queue,
		session:    session,
		client:     client,
		backendURL: backendURL,
		interval:   interval,
	}
}

// Run executes flush ticks at the fixed period until ctx is cancelled.
// The tick body runs synchronously on this goroutine, so two flushes can
// never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("Sync scheduler started", logger.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Sync scheduler stopped")
			return
		case <-ticker.C:
			s.FlushTick(ctx)
		}
	}
}

// FlushTick performs one flush attempt. Outcomes:
//   - empty queue: no-op
//   - no backend configured: pending entries are dropped, not retried
//   - 401: session and queue are cleared; the user must log in again
//   - 2xx with a parseable body: the snapshotted entries are acknowledged
//   - anything else: the queue is left untouched for the next tick
func (s *Scheduler) FlushTick(ctx context.Context) {
	if s.queue.Len() == 0 {
		return
	}

	base := s.backendURL()
	if base == "" {
		// Without a backend there is nothing these entries could ever
		// sync to; dropping beats unbounded accumulation. The local
		// store keeps them regardless.
		n := s.queue.Len()
		s.queue.Clear()
		logger.Debug("No backend configured, dropped pending entries", logger.Int("count", n))
		return
	}

	snapshot := s.queue.Snapshot()
	items := make([]model.ProgressEntry, len(snapshot))
	for i, qe := range snapshot {
		items[i] = qe.Entry
	}

	var token string
	if creds, ok := s.session.Get(); ok {
		token = creds.Token
	}

	status, body, err := s.client.PostSync(ctx, base, token, items)
	if err != nil {
		// Transport failure: keep the queue, retry next tick.
		logger.Warn("Sync failed", logger.Int("pending", len(items)), logger.ErrorField(err))
		return
	}

	if status == http.StatusUnauthorized {
		// Re-sending under a dead token cannot succeed. Drop the
		// credentials and the batch together; syncing resumes once the
		// user authenticates again.
		s.session.Clear()
		s.queue.Clear()
		logger.Warn("Sync rejected with 401, session cleared", logger.Int("dropped", len(items)))
		return
	}

	if status < 200 || status >= 300 {
		logger.Warn("Sync returned unexpected status, will retry",
			logger.Int("status", status), logger.Int("pending", len(items)))
		return
	}

	var resp model.SyncResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Warn("Sync response unparseable, will retry", logger.ErrorField(err))
		return
	}

	s.queue.Ack(snapshot)
	s.mu.Lock()
	s.lastSyncAt = time.Now()
	s.mu.Unlock()
	logger.Debug("Sync completed",
		logger.Int("flushed", len(items)),
		logger.Int("stored", resp.Stored))
}

// LastSyncAt returns the time of the last successful flush, zero if none.
func (s *Scheduler) LastSyncAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSyncAt
}
