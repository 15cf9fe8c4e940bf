package workers

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/session"
)

// Mock worker for testing
type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name string, interval time.Duration, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
		runFunc:    func(ctx context.Context) error { return nil },
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return nil
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler()

	worker1 := newMockWorker("test-worker-1", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker1)

	ctx := context.Background()
	err := scheduler.Start(ctx)
	require.NoError(t, err)
	assert.True(t, scheduler.IsRunning())

	time.Sleep(250 * time.Millisecond)

	err = scheduler.Stop()
	require.NoError(t, err)
	assert.False(t, scheduler.IsRunning())

	// Immediate run plus at least one tick
	runCount := worker1.GetRunCount()
	assert.GreaterOrEqual(t, runCount, 2, "Worker should have run at least 2 times")
}

func TestScheduler_ContextCancellation(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	ctx, cancel := context.WithCancel(context.Background())

	err := scheduler.Start(ctx)
	require.NoError(t, err)

	cancel()
	time.Sleep(200 * time.Millisecond)

	// Stop should work even after context cancellation
	err = scheduler.Stop()
	require.NoError(t, err)
}

func TestScheduler_DisabledWorker(t *testing.T) {
	scheduler := NewScheduler()

	enabledWorker := newMockWorker("enabled-worker", 100*time.Millisecond, true)
	disabledWorker := newMockWorker("disabled-worker", 100*time.Millisecond, false)

	scheduler.RegisterWorker(enabledWorker)
	scheduler.RegisterWorker(disabledWorker)

	ctx := context.Background()
	err := scheduler.Start(ctx)
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)

	err = scheduler.Stop()
	require.NoError(t, err)

	assert.Greater(t, enabledWorker.GetRunCount(), 0)
	assert.Equal(t, 0, disabledWorker.GetRunCount())
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	ctx := context.Background()

	err := scheduler.Start(ctx)
	require.NoError(t, err)

	err = scheduler.Start(ctx)
	assert.Error(t, err)

	scheduler.Stop()
}

func TestScheduler_GetWorkers(t *testing.T) {
	scheduler := NewScheduler()

	worker1 := newMockWorker("worker-1", 100*time.Millisecond, true)
	worker2 := newMockWorker("worker-2", 200*time.Millisecond, false)

	scheduler.RegisterWorker(worker1)
	scheduler.RegisterWorker(worker2)

	workers := scheduler.GetWorkers()
	assert.Len(t, workers, 2)
	assert.Equal(t, "worker-1", workers[0].Name())
	assert.Equal(t, "worker-2", workers[1].Name())
}

func TestSessionSweeperWorker_ExpiresStaleSessions(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	_, err := store.Present(ctx, session.Key{ChatID: "c1@c.us", Sender: "a@c.us"}, "ref1",
		[]session.Option{{Label: "one", Selector: "s1"}})
	require.NoError(t, err)

	// Zero max age expires everything on the next sweep
	worker := NewSessionSweeperWorker(store, time.Minute, 0, true)
	require.NoError(t, worker.Run(ctx))

	assert.Equal(t, 0, store.Count())
	assert.Equal(t, int64(1), worker.Health().RunCount)
}

func TestSessionSweeperWorker_KeepsFreshSessions(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	_, err := store.Present(ctx, session.Key{ChatID: "c1@c.us", Sender: "a@c.us"}, "ref1",
		[]session.Option{{Label: "one", Selector: "s1"}})
	require.NoError(t, err)

	worker := NewSessionSweeperWorker(store, time.Minute, time.Hour, true)
	require.NoError(t, worker.Run(ctx))

	assert.Equal(t, 1, store.Count())
}

func TestTempCleanerWorker_RemovesOldFiles(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "old.mp4")
	require.NoError(t, os.WriteFile(oldFile, []byte("stale"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	newFile := filepath.Join(dir, "new.mp4")
	require.NoError(t, os.WriteFile(newFile, []byte("fresh"), 0o644))

	worker := NewTempCleanerWorker(dir, time.Minute, time.Hour, true)
	require.NoError(t, worker.Run(context.Background()))

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
}

func TestTempCleanerWorker_MissingDirIsNotAnError(t *testing.T) {
	worker := NewTempCleanerWorker(filepath.Join(t.TempDir(), "nope"), time.Minute, time.Hour, true)
	require.NoError(t, worker.Run(context.Background()))
}
