package jobs

import (
	"context"
	"time"

	"github.com/timmy/lexpdf/internal/logger"
)

func (m *Manager) janitor(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.CtxWarn(ctx, "janitor sweep failed: %v", err)
			}
		}
	}
}

// Sweep evicts terminal jobs older than the retention window together with
// their artifacts and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if m.cfg.Retention <= 0 {
		return 0, nil
	}
	expired, err := m.store.ListExpired(ctx, m.now().Add(-m.cfg.Retention))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, job := range expired {
		if job.ResultKey != "" {
			if err := m.artifacts.Delete(ctx, job.ResultKey); err != nil {
				logger.CtxWarn(logger.SetJobID(ctx, job.ID), "cannot delete artifact %s: %v", job.ResultKey, err)
				continue
			}
		}
		if err := m.store.Delete(ctx, job.ID); err != nil {
			logger.CtxWarn(logger.SetJobID(ctx, job.ID), "cannot delete job: %v", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.With(logger.Fields{}).WithCount(removed).Info(ctx, "evicted expired jobs")
	}
	return removed, nil
}
