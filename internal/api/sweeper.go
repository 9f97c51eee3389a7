package api

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

// removeExpired deletes regular files under the upload directory whose
// modification time is older than the TTL and prunes their ledger rows.
func (h *Handler) removeExpired(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-h.fileTTL)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(h.uploadDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			log.Printf("remove old file %s failed: %v", entry.Name(), err)
			continue
		}
		if h.ledger != nil {
			if err := h.ledger.Remove(ctx, entry.Name()); err != nil {
				log.Printf("prune ledger row %s failed: %v", entry.Name(), err)
			}
		}
		log.Printf("deleted old file: %s", entry.Name())
		removed++
	}
	return removed, nil
}

// StartSweeper runs removeExpired on a ticker until ctx is cancelled.
// A non-positive interval disables the sweeper, leaving the /cleanup
// endpoint as the only deleter.
func (h *Handler) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go h.sweepLoop(ctx, interval)
}

func (h *Handler) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.removeExpired(ctx); err != nil {
				log.Printf("sweep uploads error: %v", err)
			}
		}
	}
}
