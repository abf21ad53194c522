package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, need *Need) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Need, error)

	// LockByID loads the need under a row lock where the dialect supports
	// one. Transition logic runs check-then-apply inside that lock.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Need, error)

	// UpdateStatus is a guarded compare-and-set: the row moves from exactly
	// `from` to `to` or not at all. Returns whether a row changed.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)

	SetGoLive(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	SetHelper(ctx context.Context, db *gorm.DB, id, helperID snowflake.ID, amountGivenCents *int64, now time.Time) error
	SetConfirmedAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amountCents *int64, now time.Time) error
	SetClosure(ctx context.Context, db *gorm.DB, id, closedBy snowflake.ID, now time.Time) error
	SetCoordinates(ctx context.Context, db *gorm.DB, id snowflake.ID, lat, lng float64, now time.Time) error

	AppendEvent(ctx context.Context, db *gorm.DB, event *NeedEvent) error
	ListEvents(ctx context.Context, db *gorm.DB, needID snowflake.ID) ([]NeedEvent, error)

	// HasNotificationFlag reports whether the effect was already dispatched
	// for the need. Read-only; claiming remains the atomic gate.
	HasNotificationFlag(ctx context.Context, db *gorm.DB, needID snowflake.ID, effect EffectKind) (bool, error)
	// ClaimNotificationFlag atomically records that an effect is being
	// dispatched. False means the flag already existed.
	ClaimNotificationFlag(ctx context.Context, db *gorm.DB, needID snowflake.ID, effect EffectKind, now time.Time) (bool, error)
	// ReleaseNotificationFlag undoes a claim whose send failed, keeping the
	// effect retryable.
	ReleaseNotificationFlag(ctx context.Context, db *gorm.DB, needID snowflake.ID, effect EffectKind) error

	// NeedingCoordinates lists needs that have a postal code but no
	// coordinates yet, for the backfill pass.
	NeedingCoordinates(ctx context.Context, db *gorm.DB, limit int) ([]*Need, error)
}
