package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	sqlite "github.com/glebarez/sqlite"
	"github.com/otherscentered/platform/internal/clock"
	"github.com/otherscentered/platform/internal/geocode"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	needrepo "github.com/otherscentered/platform/internal/need/repository"
	needservice "github.com/otherscentered/platform/internal/need/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type noopNotifier struct{}

func (noopNotifier) SendEffect(ctx context.Context, need *needdomain.Need, effect needdomain.EffectKind) (needdomain.NotificationResult, error) {
	return needdomain.NotificationSent, nil
}

type stubGeocoder struct {
	coords geocode.Coordinates
	err    error
}

func (g *stubGeocoder) Resolve(ctx context.Context, postalCode, country string) (geocode.Coordinates, error) {
	if g.err != nil {
		return geocode.Coordinates{}, g.err
	}
	return g.coords, nil
}

type fixture struct {
	sched      *Scheduler
	promotions *Promotions
	svc        needdomain.Service
	db         *gorm.DB
	clk        *clock.FakeClock
	geocoder   *stubGeocoder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&needdomain.Need{}, &needdomain.NeedEvent{}, &needdomain.NotificationFlag{}, &PromotionJob{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	promotions := NewPromotions(conn, node, clk)
	repo := needrepo.Provide()

	svc := needservice.New(needservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repo,
		Notifier: noopNotifier{},
		Promoter: promotions,
		Config:   needservice.Config{PromotionDelay: 7 * 24 * time.Hour},
	})

	geocoder := &stubGeocoder{coords: geocode.Coordinates{Lat: 41.25, Lng: -95.94}}
	sched, err := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Promotions: promotions,
		NeedSvc:    svc,
		NeedRepo:   repo,
		Geocoder:   geocoder,
	})
	require.NoError(t, err)

	return &fixture{
		sched:      sched,
		promotions: promotions,
		svc:        svc,
		db:         conn,
		clk:        clk,
		geocoder:   geocoder,
	}
}

func (f *fixture) publishNeed(t *testing.T, zip string) needdomain.Need {
	t.Helper()
	ctx := context.Background()
	need, err := f.svc.Submit(ctx, needdomain.SubmitNeedRequest{
		Title:   "Test need",
		Zip:     zip,
		OwnerID: 100,
	})
	require.NoError(t, err)
	published, err := f.svc.Publish(ctx, needdomain.PublishNeedRequest{NeedID: need.ID, ActorID: 1})
	require.NoError(t, err)
	return published
}

func TestSchedulePromotionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.promotions.SchedulePromotion(ctx, 42, needdomain.StatusActive, time.Hour))
	require.NoError(t, f.promotions.SchedulePromotion(ctx, 42, needdomain.StatusActive, time.Hour))

	var count int64
	require.NoError(t, f.db.Model(&PromotionJob{}).Where("need_id = ?", 42).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFirePromotionsJobAppliesDuePromotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	need := f.publishNeed(t, "")
	assert.Equal(t, needdomain.StatusNew, need.Status)

	f.clk.Advance(7*24*time.Hour + time.Minute)
	require.NoError(t, f.sched.FirePromotionsJob(ctx))

	got, err := f.svc.GetByID(ctx, need.ID)
	require.NoError(t, err)
	assert.Equal(t, needdomain.StatusActive, got.Status)

	var job PromotionJob
	require.NoError(t, f.db.Where("need_id = ?", need.ID).First(&job).Error)
	assert.NotNil(t, job.FiredAt)
}

func TestFirePromotionsJobIgnoresNotDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	need := f.publishNeed(t, "")

	f.clk.Advance(time.Hour)
	require.NoError(t, f.sched.FirePromotionsJob(ctx))

	got, err := f.svc.GetByID(ctx, need.ID)
	require.NoError(t, err)
	assert.Equal(t, needdomain.StatusNew, got.Status)

	var job PromotionJob
	require.NoError(t, f.db.Where("need_id = ?", need.ID).First(&job).Error)
	assert.Nil(t, job.FiredAt)
}

func TestFirePromotionsJobSkipsWhenNeedMovedOn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	need := f.publishNeed(t, "")

	_, err := f.svc.Claim(ctx, needdomain.ClaimNeedRequest{NeedID: need.ID, HelperID: 200})
	require.NoError(t, err)

	f.clk.Advance(7*24*time.Hour + time.Minute)
	require.NoError(t, f.sched.FirePromotionsJob(ctx))

	got, err := f.svc.GetByID(ctx, need.ID)
	require.NoError(t, err)
	assert.Equal(t, needdomain.StatusMatched, got.Status)

	// The stale job is consumed so it never fires again.
	var job PromotionJob
	require.NoError(t, f.db.Where("need_id = ?", need.ID).First(&job).Error)
	assert.NotNil(t, job.FiredAt)
}

func TestGeocodeBackfillJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	need := f.publishNeed(t, "68046")

	// Simulate a need published before geocoding existed.
	require.NoError(t, f.db.Exec(`UPDATE needs SET lat = NULL, lng = NULL WHERE id = ?`, need.ID).Error)

	require.NoError(t, f.sched.GeocodeBackfillJob(ctx))

	got, err := f.svc.GetByID(ctx, need.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Lat)
	require.NotNil(t, got.Lng)
	assert.InDelta(t, 41.25, *got.Lat, 0.0001)
	assert.InDelta(t, -95.94, *got.Lng, 0.0001)
}

func TestGeocodeBackfillJobSkipsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	need := f.publishNeed(t, "68046")
	require.NoError(t, f.db.Exec(`UPDATE needs SET lat = NULL, lng = NULL WHERE id = ?`, need.ID).Error)

	f.geocoder.err = geocode.ErrProviderUnreachable
	require.NoError(t, f.sched.GeocodeBackfillJob(ctx))

	got, err := f.svc.GetByID(ctx, need.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Lat)
}

func TestRunOnce(t *testing.T) {
	f := newFixture(t)
	need := f.publishNeed(t, "")

	f.clk.Advance(7*24*time.Hour + time.Minute)
	require.NoError(t, f.sched.RunOnce(context.Background()))

	got, err := f.svc.GetByID(context.Background(), need.ID)
	require.NoError(t, err)
	assert.Equal(t, needdomain.StatusActive, got.Status)
}
