package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/otherscentered/platform/internal/geocode"
)

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidHelper     = errors.New("invalid_helper")
	ErrIllegalTransition = errors.New("illegal_transition")
)

type SubmitNeedRequest struct {
	Title                string
	Category             string
	City                 string
	Zip                  string
	OwnerID              snowflake.ID
	ContactEmail         string
	AmountRequestedCents int64
	DueDate              *time.Time
	Notes                string
}

type PublishNeedRequest struct {
	NeedID  snowflake.ID
	ActorID snowflake.ID
}

type ClaimNeedRequest struct {
	NeedID           snowflake.ID
	HelperID         snowflake.ID
	AmountGivenCents *int64
}

type VerifyNeedRequest struct {
	NeedID               snowflake.ID
	ActorID              snowflake.ID
	AmountConfirmedCents *int64
	ProofReference       string
}

type CloseNeedRequest struct {
	NeedID  snowflake.ID
	ActorID snowflake.ID
}

// Service applies lifecycle transitions to needs. Each call serializes on
// the need's row, so side-effect flags cannot be lost to concurrent writers.
type Service interface {
	Submit(ctx context.Context, req SubmitNeedRequest) (Need, error)
	Publish(ctx context.Context, req PublishNeedRequest) (Need, error)
	Claim(ctx context.Context, req ClaimNeedRequest) (Need, error)
	Verify(ctx context.Context, req VerifyNeedRequest) (Need, error)
	Close(ctx context.Context, req CloseNeedRequest) (Need, error)

	// Promote applies a deferred promotion. It re-checks the current status
	// and silently skips when the need has moved on; the bool reports
	// whether the promotion was applied.
	Promote(ctx context.Context, needID snowflake.ID, target Status) (bool, error)

	GetByID(ctx context.Context, id snowflake.ID) (Need, error)
	Events(ctx context.Context, needID snowflake.ID) ([]NeedEvent, error)
}

// Notifier dispatches one notification effect at most once per need.
type Notifier interface {
	SendEffect(ctx context.Context, need *Need, effect EffectKind) (NotificationResult, error)
}

// Promoter registers a deferred status promotion. Scheduling an already
// pending (need, target) pair is a no-op.
type Promoter interface {
	SchedulePromotion(ctx context.Context, needID snowflake.ID, target Status, delay time.Duration) error
}

// Geocoder resolves a postal code into coordinates, best effort.
type Geocoder interface {
	Resolve(ctx context.Context, postalCode, country string) (geocode.Coordinates, error)
}
