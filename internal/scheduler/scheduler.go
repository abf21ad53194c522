package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/otherscentered/platform/internal/clock"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	obsmetrics "github.com/otherscentered/platform/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

// Config tunes the scheduler tick.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Promotions *Promotions
	NeedSvc    needdomain.Service
	NeedRepo   needdomain.Repository
	Geocoder   needdomain.Geocoder `optional:"true"`
	Config     Config              `optional:"true"`
}

// Scheduler runs the periodic maintenance pass: firing due promotions and
// backfilling coordinates.
type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        Config
	promotions *Promotions
	needSvc    needdomain.Service
	needRepo   needdomain.Repository
	geocoder   needdomain.Geocoder
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Promotions == nil || p.NeedSvc == nil || p.NeedRepo == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Config.withDefaults(),
		promotions: p.Promotions,
		needSvc:    p.NeedSvc,
		needRepo:   p.NeedRepo,
		geocoder:   p.Geocoder,
	}, nil
}

// RunOnce runs one scheduler tick: fire due promotions, then backfill
// missing coordinates.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "promotions", 30*time.Second, s.FirePromotionsJob))
	if s.geocoder != nil {
		err = errors.Join(err, s.runJob(parent, "geocode_backfill", 30*time.Second, s.GeocodeBackfillJob))
	}
	return err
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := s.clock.Now()
	log := s.log.With(zap.String("job", name))
	err := fn(ctx)
	if err == nil {
		log.Debug("job finished", zap.Duration("elapsed", time.Since(start)))
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// FirePromotionsJob fires every due pending promotion. The need service
// re-checks the current status under the need's row lock; a promotion that
// no longer applies is consumed silently.
func (s *Scheduler) FirePromotionsJob(ctx context.Context) error {
	jobs, err := s.promotions.fetchDue(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		applied, err := s.needSvc.Promote(ctx, job.NeedID, job.TargetStatus)
		if err != nil {
			obsmetrics.IncPromotion("error")
			s.log.Warn("promotion failed",
				zap.String("need_id", job.NeedID.String()),
				zap.String("target", string(job.TargetStatus)),
				zap.Error(err),
			)
			continue
		}
		if applied {
			obsmetrics.IncPromotion("applied")
		} else {
			obsmetrics.IncPromotion("skipped")
		}
		if err := s.promotions.markFired(ctx, job.ID); err != nil {
			s.log.Warn("marking promotion fired failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GeocodeBackfillJob resolves coordinates for needs that carry a postal
// code but were never geocoded. Per-need failures are logged and skipped.
func (s *Scheduler) GeocodeBackfillJob(ctx context.Context) error {
	needs, err := s.needRepo.NeedingCoordinates(ctx, s.db, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, need := range needs {
		coords, err := s.geocoder.Resolve(ctx, need.Zip, "")
		if err != nil {
			s.log.Debug("backfill geocode failed",
				zap.String("need_id", need.ID.String()),
				zap.String("zip", need.Zip),
				zap.Error(err),
			)
			continue
		}
		if err := s.needRepo.SetCoordinates(ctx, s.db, need.ID, coords.Lat, coords.Lng, s.clock.Now()); err != nil {
			s.log.Warn("backfill persist failed", zap.String("need_id", need.ID.String()), zap.Error(err))
		}
	}
	return nil
}
