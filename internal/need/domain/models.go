package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Need is a request for assistance tracked through its lifecycle.
// Coordinates are present only after a successful geocoding lookup for the
// current postal code; a postal-code change clears them.
type Need struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Title        string       `gorm:"not null" json:"title"`
	Slug         string       `gorm:"index" json:"slug,omitempty"`
	Category     string       `gorm:"index" json:"category,omitempty"`
	City         string       `gorm:"index" json:"city,omitempty"`
	Zip          string       `json:"zip,omitempty"`
	Lat          *float64     `json:"lat,omitempty"`
	Lng          *float64     `json:"lng,omitempty"`
	Status       Status       `gorm:"not null;index" json:"status"`
	OwnerID      snowflake.ID `gorm:"not null;index" json:"owner_id"`
	ContactEmail string       `json:"contact_email,omitempty"`

	HelperID *snowflake.ID `gorm:"index" json:"helper_id,omitempty"`

	AmountRequestedCents int64  `gorm:"not null;default:0" json:"amount_requested_cents"`
	AmountGivenCents     *int64 `json:"amount_given_cents,omitempty"`
	AmountConfirmedCents *int64 `json:"amount_confirmed_cents,omitempty"`

	DueDate  *time.Time `gorm:"index" json:"due_date,omitempty"`
	GoLiveAt *time.Time `json:"go_live_at,omitempty"`

	ClosedBy *snowflake.ID `json:"closed_by,omitempty"`
	ClosedAt *time.Time    `json:"closed_at,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

// NeedEvent is one append-only history entry. Never mutated after insert.
type NeedEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	NeedID    snowflake.ID      `gorm:"not null;index" json:"need_id"`
	ActorID   snowflake.ID      `gorm:"not null" json:"actor_id"`
	Kind      string            `gorm:"not null" json:"kind"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
}

// Event kinds recorded alongside status transitions.
const (
	EventKindSubmitted          = "submitted"
	EventKindPublished          = "published"
	EventKindPromoted           = "promoted"
	EventKindHelperContacted    = "helper_contacted"
	EventKindClaimed            = "claimed"
	EventKindCompletionRecorded = "completion_recorded"
	EventKindVerified           = "verified"
	EventKindClosed             = "closed"
)

// NotificationFlag marks a notification effect as dispatched for a need.
// The (need_id, effect) primary key makes flag claiming atomic: a second
// insert for the same pair fails on the unique constraint.
type NotificationFlag struct {
	NeedID snowflake.ID `gorm:"primaryKey" json:"need_id"`
	Effect EffectKind   `gorm:"primaryKey" json:"effect"`
	SentAt time.Time    `gorm:"not null" json:"sent_at"`
}

// EffectKind identifies a notification side effect tied to a transition.
type EffectKind string

const (
	EffectAdminNewNeed    EffectKind = "admin_new_need"
	EffectNeedLive        EffectKind = "need_live"
	EffectMatchedOwner    EffectKind = "matched_owner"
	EffectMatchedAdmin    EffectKind = "matched_admin"
	EffectFulfilledAdmin  EffectKind = "fulfilled_admin"
	EffectFulfilledHelper EffectKind = "fulfilled_helper"
)

// NotificationResult reports the outcome of a single effect dispatch.
type NotificationResult string

const (
	NotificationSent             NotificationResult = "sent"
	NotificationAlreadySent      NotificationResult = "already_sent"
	NotificationRecipientMissing NotificationResult = "recipient_missing"
)
