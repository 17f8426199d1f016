package scheduler

import (
	"context"
	"time"

	"github.com/coachlab/coach-api/internal/models"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PruneExpiredAPIKeys deletes keys whose expiry is before now.
func PruneExpiredAPIKeys(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Unscoped().
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&models.APIKey{})
	return res.RowsAffected, res.Error
}

// Start runs the maintenance jobs until the returned scheduler is shut down.
func Start(db *gorm.DB, interval time.Duration, logger *zap.Logger) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = time.Hour
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			n, err := PruneExpiredAPIKeys(ctx, db, time.Now())
			if err != nil {
				logger.Error("Failed to prune expired API keys", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("Pruned expired API keys", zap.Int64("count", n))
			}
		}),
		gocron.WithName("prune-expired-api-keys"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
