package workers

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// TempCleanerWorker deletes leftover files from the download scratch
// directory. The queue removes files after delivery, but crashes and
// failed sends can leave orphans behind.
type TempCleanerWorker struct {
	*BaseWorker
	dir    string
	maxAge time.Duration
}

// NewTempCleanerWorker creates a temp directory cleaner
func NewTempCleanerWorker(dir string, interval, maxAge time.Duration, enabled bool) *TempCleanerWorker {
	return &TempCleanerWorker{
		BaseWorker: NewBaseWorker("temp_cleaner", interval, enabled),
		dir:        dir,
		maxAge:     maxAge,
	}
}

// Run removes files older than maxAge from the scratch directory
func (w *TempCleanerWorker) Run(ctx context.Context) error {
	start := time.Now()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			w.RecordRun(time.Since(start))
			return nil
		}
		w.RecordError(err, time.Since(start))
		return err
	}

	cutoff := time.Now().Add(-w.maxAge)
	var removed int
	var freed uint64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, entry.Name())); err != nil {
			w.Log().Warnw("Failed to remove stale file", "file", entry.Name(), "error", err)
			continue
		}
		removed++
		freed += uint64(info.Size())
	}

	if removed > 0 {
		w.Log().Infow("Cleaned scratch directory", "removed", removed, "freed", humanize.Bytes(freed))
	}

	w.RecordRun(time.Since(start))
	return nil
}
