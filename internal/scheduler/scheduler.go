// Package scheduler drives the periodic activities: the entry sweep and the
// management cycle each run on their own fixed interval.
package scheduler

import (
	"context"
	"time"

	"talon/internal/logger"
)

// Loop runs task immediately and then on every interval tick until ctx is
// cancelled. The task gets the loop context so in-flight venue calls stop
// promptly at shutdown.
func Loop(ctx context.Context, name string, interval time.Duration, task func(context.Context)) {
	if task == nil || interval <= 0 {
		logger.Warnf("scheduler: %s not started (interval=%s)", name, interval)
		return
	}
	logger.Infof("scheduler: %s started interval=%s", name, interval)
	task(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("scheduler: %s stopped", name)
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}
