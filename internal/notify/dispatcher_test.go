package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	sqlite "github.com/glebarez/sqlite"
	"github.com/otherscentered/platform/internal/clock"
	memberdomain "github.com/otherscentered/platform/internal/member/domain"
	memberrepo "github.com/otherscentered/platform/internal/member/repository"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	needrepo "github.com/otherscentered/platform/internal/need/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func newDispatcher(t *testing.T) (*Dispatcher, *fakeMailer, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&needdomain.Need{}, &needdomain.NotificationFlag{}, &memberdomain.Member{}))

	mailer := &fakeMailer{}
	d := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)),
		Repo:    needrepo.Provide(),
		Members: memberrepo.Provide(),
		Mailer:  mailer,
		Config:  Config{AdminEmail: "admin@otherscentered.org", BaseURL: "https://otherscentered.org"},
	}).(*Dispatcher)
	return d, mailer, conn
}

func seedNeed(t *testing.T, conn *gorm.DB, need *needdomain.Need) {
	t.Helper()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	need.CreatedAt = now
	need.UpdatedAt = now
	require.NoError(t, conn.Create(need).Error)
}

func TestSendEffectAtMostOnce(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	need := &needdomain.Need{ID: 1, Title: "Winter coats", Status: needdomain.StatusNew, OwnerID: 100}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectAdminNewNeed)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)

	result, err = d.SendEffect(ctx, need, needdomain.EffectAdminNewNeed)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationAlreadySent, result)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"admin@otherscentered.org"}, mailer.sent[0].to)
}

func TestSendEffectFailureReleasesFlag(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	need := &needdomain.Need{ID: 2, Title: "Bus passes", Status: needdomain.StatusNew, OwnerID: 100}
	seedNeed(t, conn, need)

	mailer.err = errors.New("smtp down")
	_, err := d.SendEffect(ctx, need, needdomain.EffectAdminNewNeed)
	require.Error(t, err)

	// The flag was released, so the retry goes through as a first send.
	mailer.err = nil
	result, err := d.SendEffect(ctx, need, needdomain.EffectAdminNewNeed)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)
	assert.Len(t, mailer.sent, 1)
}

func TestSendEffectRecipientMissing(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	// Owner 100 is not registered and the need has no contact address.
	need := &needdomain.Need{ID: 3, Title: "School supplies", Status: needdomain.StatusNew, OwnerID: 100}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectNeedLive)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationRecipientMissing, result)
	assert.Empty(t, mailer.sent)

	// No flag was set, so the effect can still fire once a recipient exists.
	require.NoError(t, conn.Create(&memberdomain.Member{ID: 100, DisplayName: "Pat", Email: "pat@example.org"}).Error)
	result, err = d.SendEffect(ctx, need, needdomain.EffectNeedLive)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"pat@example.org"}, mailer.sent[0].to)
}

func TestSendEffectContactEmailFallback(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	need := &needdomain.Need{
		ID:           4,
		Title:        "Car repair",
		Status:       needdomain.StatusNew,
		OwnerID:      100,
		ContactEmail: "fallback@example.org",
	}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectNeedLive)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"fallback@example.org"}, mailer.sent[0].to)
}

func TestSendEffectHelperRecipient(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	require.NoError(t, conn.Create(&memberdomain.Member{ID: 200, DisplayName: "Sam", Email: "sam@example.org"}).Error)

	helperID := snowflake.ID(200)
	need := &needdomain.Need{ID: 5, Title: "Rent gap", Status: needdomain.StatusFulfilled, OwnerID: 100, HelperID: &helperID}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectFulfilledHelper)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"sam@example.org"}, mailer.sent[0].to)
}

func TestSendEffectHelperMissing(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	need := &needdomain.Need{ID: 6, Title: "Rent gap", Status: needdomain.StatusFulfilled, OwnerID: 100}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectFulfilledHelper)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationRecipientMissing, result)
	assert.Empty(t, mailer.sent)
}

func TestRenderReplacesTokens(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	confirmed := int64(12550)
	need := &needdomain.Need{
		ID:                   7,
		Title:                "Winter coats",
		Status:               needdomain.StatusFulfilled,
		OwnerID:              100,
		AmountConfirmedCents: &confirmed,
	}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectFulfilledAdmin)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)

	require.Len(t, mailer.sent, 1)
	body := mailer.sent[0].body
	assert.Contains(t, body, "Winter coats")
	assert.Contains(t, body, "$125.50")
	assert.Contains(t, body, "https://otherscentered.org/admin/needs/7")
	assert.NotContains(t, body, "{need_title}")
	assert.NotContains(t, body, "{amount}")
}

func TestRenderPrefersSlugLink(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	need := &needdomain.Need{
		ID:           8,
		Title:        "Winter Coats!",
		Slug:         "winter-coats",
		Status:       needdomain.StatusNew,
		OwnerID:      100,
		ContactEmail: "owner@example.org",
	}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectNeedLive)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].body, "https://otherscentered.org/needs/winter-coats")
}

func TestAlreadySentWinsOverMissingRecipient(t *testing.T) {
	d, mailer, conn := newDispatcher(t)
	ctx := context.Background()

	need := &needdomain.Need{
		ID:           9,
		Title:        "Diapers",
		Status:       needdomain.StatusNew,
		OwnerID:      100,
		ContactEmail: "owner@example.org",
	}
	seedNeed(t, conn, need)

	result, err := d.SendEffect(ctx, need, needdomain.EffectNeedLive)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationSent, result)

	// The contact address disappears after the first send; the recorded
	// dispatch still wins.
	need.ContactEmail = ""
	result, err = d.SendEffect(ctx, need, needdomain.EffectNeedLive)
	require.NoError(t, err)
	assert.Equal(t, needdomain.NotificationAlreadySent, result)
	assert.Len(t, mailer.sent, 1)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.00", formatCents(0))
	assert.Equal(t, "$1.05", formatCents(105))
	assert.Equal(t, "$125.50", formatCents(12550))
}
