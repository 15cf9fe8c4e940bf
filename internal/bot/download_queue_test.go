package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

func TestDownloadQueue_FetchesAndDelivers(t *testing.T) {
	sender := &mockSender{}
	fetcher := &stubFetcher{}
	queue := NewDownloadQueue(fetcher, sender, 2, 10, logger.Get())
	queue.Start()
	defer queue.Stop()

	err := queue.Enqueue(DownloadJob{
		ChatID:   "grp1@g.us",
		Ref:      "https://example.com/v",
		Selector: "f6",
		Label:    "best",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.files) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, []string{"best"}, sender.files)
}

func TestDownloadQueue_FetchFailureApologizes(t *testing.T) {
	sender := &mockSender{}
	fetcher := &stubFetcher{err: errors.ErrFetchFailed}
	queue := NewDownloadQueue(fetcher, sender, 1, 10, logger.Get())
	queue.Start()
	defer queue.Stop()

	err := queue.Enqueue(DownloadJob{ChatID: "grp1@g.us", Ref: "ref", Selector: "f1", Label: "144p"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.messages) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Contains(t, sender.lastMessage(), "failed")
	assert.Empty(t, sender.files)
}

func TestDownloadQueue_FullQueueRejects(t *testing.T) {
	sender := &mockSender{}
	// Not started: nothing drains the queue
	queue := NewDownloadQueue(&stubFetcher{}, sender, 1, 1, logger.Get())

	require.NoError(t, queue.Enqueue(DownloadJob{ChatID: "a"}))
	err := queue.Enqueue(DownloadJob{ChatID: "b"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestDownloadQueue_StoppedQueueRejects(t *testing.T) {
	sender := &mockSender{}
	queue := NewDownloadQueue(&stubFetcher{}, sender, 1, 1, logger.Get())
	queue.Start()
	queue.Stop()

	err := queue.Enqueue(DownloadJob{ChatID: "a"})
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestDownloadQueue_StopFinishesAcceptedJobs(t *testing.T) {
	sender := &mockSender{}
	fetcher := &stubFetcher{}
	queue := NewDownloadQueue(fetcher, sender, 1, 10, logger.Get())
	queue.Start()

	// More jobs than the single worker can clear before Stop is called
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Enqueue(DownloadJob{ChatID: "grp1@g.us", Ref: "ref", Selector: "f1", Label: "144p"}))
	}

	// Stop blocks until workers finish; buffered jobs must still deliver
	queue.Stop()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.files, 5, "Accepted jobs must be delivered before shutdown completes")
}
