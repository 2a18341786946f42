package hub

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunReaper evicts idle rooms every interval until ctx is done.
func (h *Hub) RunReaper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := h.EvictIdle(h.deps.Now()); n > 0 {
				h.log.Info("reaper pass", zap.Int("evicted", n), zap.Int("rooms", h.Len()))
			}
		}
	}
}
