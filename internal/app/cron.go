package app

import (
	"context"
	"time"

	"github.com/motohub/core/internal/models"
	"github.com/motohub/core/internal/modules/alert"
	"github.com/motohub/core/internal/modules/gateway"
	pkgcron "github.com/motohub/core/internal/pkg/cron"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sessionRetention keeps expired sessions around for a while so recent
// logins still show up in admin views before being purged.
const sessionRetention = 7 * 24 * time.Hour

func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, mongoDB *mongo.Database, hub *gateway.Hub, logger *zap.Logger) {
	log := logger.Named("CronService")
	alertSvc := alert.NewService(mongoDB, hub, logger)

	sched.Register(pkgcron.Job{
		Name:        "expire_alerts",
		Description: "Deactivate road alerts whose expiry has passed",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := alertSvc.ExpireStale(ctx)
			if err != nil {
				log.Error("expire alerts failed", zap.Error(err))
				return err
			}
			if n > 0 {
				log.Info("expired stale alerts", zap.Int64("count", n))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_sessions",
		Description: "Purge expired and revoked login sessions",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-sessionRetention)
			res := db.WithContext(ctx).
				Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
				Delete(&models.UserSession{})
			if res.Error != nil {
				log.Error("session cleanup failed", zap.Error(res.Error))
				return res.Error
			}
			if res.RowsAffected > 0 {
				log.Info("purged stale sessions", zap.Int64("count", res.RowsAffected))
			}
			return nil
		},
	})
}
