package workers

import (
	"context"
	"time"

	"hermes/internal/metrics"
	"hermes/internal/session"
)

// SessionSweeperWorker expires pending selections that were never
// answered, so abandoned menus do not pile up in memory.
type SessionSweeperWorker struct {
	*BaseWorker
	store  *session.MemoryStore
	maxAge time.Duration
}

// NewSessionSweeperWorker creates a session sweeper
func NewSessionSweeperWorker(store *session.MemoryStore, interval, maxAge time.Duration, enabled bool) *SessionSweeperWorker {
	return &SessionSweeperWorker{
		BaseWorker: NewBaseWorker("session_sweeper", interval, enabled),
		store:      store,
		maxAge:     maxAge,
	}
}

// Run removes sessions older than maxAge and refreshes the gauge
func (w *SessionSweeperWorker) Run(ctx context.Context) error {
	start := time.Now()

	removed := w.store.Cleanup(w.maxAge)
	if removed > 0 {
		metrics.SessionsResolved.WithLabelValues("expired").Add(float64(removed))
		w.Log().Infow("Expired stale sessions", "removed", removed, "max_age", w.maxAge)
	}
	metrics.SessionsActive.Set(float64(w.store.Count()))

	w.RecordRun(time.Since(start))
	return nil
}
