package scheduler

import (
	"context"
	"fmt"
	"time"

	"floordesign/logger"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/tracker"
	"floordesign/utils"
)

// Interval between two runs of the housekeeping jobs.
const Interval = time.Hour

// Jobs are the periodic housekeeping tasks.
type Jobs struct {
	Sessions  tracker.Tracker
	Retention time.Duration
	// Limiters are swept of IPs idle for longer than Interval.
	Limiters []*middleware.IPRateLimiter
}

// StartScheduler runs the jobs once now, then every Interval until ctx is done.
func StartScheduler(ctx context.Context, jobs Jobs) {
	logger.Info("Scheduler started")

	ticker := time.NewTicker(Interval)

	jobs.run(ctx)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				logger.Debug("Scheduler tick")
				jobs.run(ctx)
			}
		}
	}()
}

func (j Jobs) run(ctx context.Context) {
	if j.Sessions != nil {
		PruneUploadSessions(ctx, j.Sessions, j.Retention)
	}
	for _, l := range j.Limiters {
		if removed := l.Cleanup(Interval); removed > 0 {
			logger.WithFields(map[string]interface{}{"count": removed}).Debug("Idle rate limiters removed")
		}
	}
}

// PruneUploadSessions drops finished upload sessions older than retention.
func PruneUploadSessions(ctx context.Context, sessions tracker.Tracker, retention time.Duration) int {
	cutoff := time.Now().Add(-retention)
	pruned, err := sessions.Prune(ctx, cutoff)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Error("Failed to prune upload sessions")
		return 0
	}

	logger.WithFields(map[string]interface{}{
		"count":  pruned,
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("Upload sessions pruned")

	if pruned > 0 {
		details := fmt.Sprintf("%d finished upload session(s) removed", pruned)
		utils.LogAdminActivity("system", "System", models.AdminActionPruneUploads, details)
	}
	return pruned
}
