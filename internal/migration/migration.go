package migration

import (
	memberdomain "github.com/otherscentered/platform/internal/member/domain"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	"github.com/otherscentered/platform/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

// Run applies the schema on startup. Idempotent; gorm only adds what is
// missing.
func Run(conn *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	err := conn.AutoMigrate(
		&memberdomain.Member{},
		&needdomain.Need{},
		&needdomain.NeedEvent{},
		&needdomain.NotificationFlag{},
		&scheduler.PromotionJob{},
	)
	if err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}

	log.Info("schema up to date")
	return nil
}
