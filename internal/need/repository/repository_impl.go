package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/otherscentered/platform/internal/need/domain"
	"github.com/otherscentered/platform/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, need *domain.Need) error {
	return conn.WithContext(ctx).Create(need).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Need, error) {
	var need domain.Need
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&need).Error
	if err != nil {
		return nil, err
	}
	if need.ID == 0 {
		return nil, nil
	}
	return &need, nil
}

func (r *repo) LockByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Need, error) {
	stmt := conn.WithContext(ctx)
	// sqlite has no FOR UPDATE; its single writer serializes for us.
	if conn.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var need domain.Need
	err := stmt.
		Where("id = ?", id).
		Limit(1).
		Find(&need).Error
	if err != nil {
		return nil, err
	}
	if need.ID == 0 {
		return nil, nil
	}
	return &need, nil
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE needs
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to.Canonical(),
		now,
		id,
		from.Canonical(),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SetGoLive(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE needs
		 SET go_live_at = COALESCE(go_live_at, ?), updated_at = ?
		 WHERE id = ?`,
		now,
		now,
		id,
	).Error
}

func (r *repo) SetHelper(ctx context.Context, conn *gorm.DB, id, helperID snowflake.ID, amountGivenCents *int64, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE needs
		 SET helper_id = ?, amount_given_cents = ?, updated_at = ?
		 WHERE id = ?`,
		helperID,
		amountGivenCents,
		now,
		id,
	).Error
}

func (r *repo) SetConfirmedAmount(ctx context.Context, conn *gorm.DB, id snowflake.ID, amountCents *int64, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE needs
		 SET amount_confirmed_cents = ?, updated_at = ?
		 WHERE id = ?`,
		amountCents,
		now,
		id,
	).Error
}

func (r *repo) SetClosure(ctx context.Context, conn *gorm.DB, id, closedBy snowflake.ID, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE needs
		 SET closed_by = ?, closed_at = COALESCE(closed_at, ?), updated_at = ?
		 WHERE id = ?`,
		closedBy,
		now,
		now,
		id,
	).Error
}

func (r *repo) SetCoordinates(ctx context.Context, conn *gorm.DB, id snowflake.ID, lat, lng float64, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE needs
		 SET lat = ?, lng = ?, updated_at = ?
		 WHERE id = ?`,
		lat,
		lng,
		now,
		id,
	).Error
}

func (r *repo) AppendEvent(ctx context.Context, conn *gorm.DB, event *domain.NeedEvent) error {
	return conn.WithContext(ctx).Create(event).Error
}

func (r *repo) ListEvents(ctx context.Context, conn *gorm.DB, needID snowflake.ID) ([]domain.NeedEvent, error) {
	var events []domain.NeedEvent
	err := conn.WithContext(ctx).
		Where("need_id = ?", needID).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) HasNotificationFlag(ctx context.Context, conn *gorm.DB, needID snowflake.ID, effect domain.EffectKind) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.NotificationFlag{}).
		Where("need_id = ? AND effect = ?", needID, effect).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ClaimNotificationFlag(ctx context.Context, conn *gorm.DB, needID snowflake.ID, effect domain.EffectKind, now time.Time) (bool, error) {
	err := conn.WithContext(ctx).Create(&domain.NotificationFlag{
		NeedID: needID,
		Effect: effect,
		SentAt: now,
	}).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) ReleaseNotificationFlag(ctx context.Context, conn *gorm.DB, needID snowflake.ID, effect domain.EffectKind) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM notification_flags WHERE need_id = ? AND effect = ?`,
		needID,
		effect,
	).Error
}

func (r *repo) NeedingCoordinates(ctx context.Context, conn *gorm.DB, limit int) ([]*domain.Need, error) {
	var needs []*domain.Need
	err := conn.WithContext(ctx).
		Where("zip <> '' AND lat IS NULL AND status <> ?", domain.StatusClosed).
		Order("id asc").
		Limit(limit).
		Find(&needs).Error
	if err != nil {
		return nil, err
	}
	return needs, nil
}
