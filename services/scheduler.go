package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartRetentionScheduler purges archived flows every interval. Shut the
// returned scheduler down to stop it.
func (s *FlowService) StartRetentionScheduler(ctx context.Context, retention, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			purged, err := s.PurgeArchivedFlows(ctx, retention)
			if err != nil {
				s.Log.Error("[Scheduler] purge failed", zap.Int("purged", purged), zap.Error(err))
				return
			}
			if purged > 0 {
				s.Log.Info("✅ [Scheduler] purged archived flows", zap.Int("purged", purged))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
