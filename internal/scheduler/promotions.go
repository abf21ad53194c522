package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/otherscentered/platform/internal/clock"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	"github.com/otherscentered/platform/pkg/db"
	"gorm.io/gorm"
)

// PromotionJob is one deferred status promotion. The unique index on
// (need_id, target_status) makes scheduling idempotent per pair.
type PromotionJob struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	NeedID       snowflake.ID      `gorm:"not null;uniqueIndex:ux_need_promotions_target"`
	TargetStatus needdomain.Status `gorm:"not null;uniqueIndex:ux_need_promotions_target"`
	FireAt       time.Time         `gorm:"not null;index"`
	FiredAt      *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (PromotionJob) TableName() string {
	return "need_promotions"
}

// Promotions owns the deferred-promotion job table. It carries no
// dependency on the need service so transition handlers can schedule jobs
// without a cycle.
type Promotions struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewPromotions(conn *gorm.DB, genID *snowflake.Node, clk clock.Clock) *Promotions {
	return &Promotions{db: conn, genID: genID, clock: clk}
}

// SchedulePromotion registers a one-shot deferred promotion. A job already
// recorded for the same (need, target) pair makes this a no-op.
func (p *Promotions) SchedulePromotion(ctx context.Context, needID snowflake.ID, target needdomain.Status, delay time.Duration) error {
	now := p.clock.Now()
	job := PromotionJob{
		ID:           p.genID.Generate(),
		NeedID:       needID,
		TargetStatus: target.Canonical(),
		FireAt:       now.Add(delay),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.db.WithContext(ctx).Create(&job).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	return nil
}

func (p *Promotions) fetchDue(ctx context.Context, limit int) ([]PromotionJob, error) {
	var jobs []PromotionJob
	err := p.db.WithContext(ctx).
		Where("fired_at IS NULL AND fire_at <= ?", p.clock.Now()).
		Order("fire_at asc, id asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (p *Promotions) markFired(ctx context.Context, jobID snowflake.ID) error {
	now := p.clock.Now()
	return p.db.WithContext(ctx).Exec(
		`UPDATE need_promotions
		 SET fired_at = ?, updated_at = ?
		 WHERE id = ? AND fired_at IS NULL`,
		now,
		now,
		jobID,
	).Error
}
