package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/otherscentered/platform/internal/clock"
	"github.com/otherscentered/platform/internal/need/domain"
	obsmetrics "github.com/otherscentered/platform/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Config tunes the lifecycle automation.
type Config struct {
	PromotionDelay time.Duration
	GeocodeCountry string
}

func (c Config) withDefaults() Config {
	if c.PromotionDelay <= 0 {
		c.PromotionDelay = 7 * 24 * time.Hour
	}
	if c.GeocodeCountry == "" {
		c.GeocodeCountry = "US"
	}
	return c
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Notifier domain.Notifier
	Promoter domain.Promoter `optional:"true"`
	Geocoder domain.Geocoder `optional:"true"`
	Config   Config          `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      Config
	repo     domain.Repository
	notifier domain.Notifier
	promoter domain.Promoter
	geocoder domain.Geocoder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("need.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Config.withDefaults(),
		repo:     p.Repo,
		notifier: p.Notifier,
		promoter: p.Promoter,
		geocoder: p.Geocoder,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitNeedRequest) (domain.Need, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Need{}, domain.ErrInvalidTitle
	}
	if req.OwnerID == 0 {
		return domain.Need{}, domain.ErrInvalidID
	}
	if req.AmountRequestedCents < 0 {
		return domain.Need{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	metadata := datatypes.JSONMap{}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		metadata["notes"] = notes
	}

	need := domain.Need{
		ID:                   s.genID.Generate(),
		Title:                title,
		Slug:                 slug.Make(title),
		Category:             strings.TrimSpace(req.Category),
		City:                 strings.TrimSpace(req.City),
		Zip:                  strings.TrimSpace(req.Zip),
		Status:               domain.StatusInReview,
		OwnerID:              req.OwnerID,
		ContactEmail:         strings.TrimSpace(req.ContactEmail),
		AmountRequestedCents: req.AmountRequestedCents,
		DueDate:              req.DueDate,
		Metadata:             metadata,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &need); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, need.ID, req.OwnerID, domain.EventKindSubmitted, datatypes.JSONMap{
			"status": string(domain.StatusInReview),
		})
	})
	if err != nil {
		return domain.Need{}, err
	}

	s.dispatch(ctx, &need, domain.EffectAdminNewNeed)
	return need, nil
}

func (s *Service) Publish(ctx context.Context, req domain.PublishNeedRequest) (domain.Need, error) {
	var (
		need    *domain.Need
		applied bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		need, applied, err = s.transition(ctx, tx, req.NeedID, req.ActorID, domain.EventKindPublished, domain.StatusNew, nil)
		if err != nil || !applied {
			return err
		}
		return s.repo.SetGoLive(ctx, tx, need.ID, s.clock.Now())
	})
	if err != nil {
		return domain.Need{}, err
	}
	if !applied {
		return *need, nil
	}

	// Transition is committed; everything past this point is best-effort
	// enrichment and must not roll it back.
	s.geocodeIfNeeded(ctx, need)
	s.dispatch(ctx, need, domain.EffectNeedLive)
	if s.promoter != nil {
		if err := s.promoter.SchedulePromotion(ctx, need.ID, domain.StatusActive, s.cfg.PromotionDelay); err != nil {
			s.log.Warn("schedule promotion failed", zap.String("need_id", need.ID.String()), zap.Error(err))
		}
	}

	return s.reload(ctx, need.ID)
}

func (s *Service) Claim(ctx context.Context, req domain.ClaimNeedRequest) (domain.Need, error) {
	if req.HelperID == 0 {
		return domain.Need{}, domain.ErrInvalidHelper
	}
	if req.AmountGivenCents != nil && *req.AmountGivenCents < 0 {
		return domain.Need{}, domain.ErrInvalidAmount
	}

	payload := datatypes.JSONMap{"helper_id": req.HelperID.String()}
	if req.AmountGivenCents != nil {
		payload["amount_given_cents"] = *req.AmountGivenCents
	}

	var (
		need    *domain.Need
		applied bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		need, applied, err = s.transition(ctx, tx, req.NeedID, req.HelperID, domain.EventKindClaimed, domain.StatusMatched, payload)
		if err != nil || !applied {
			return err
		}
		now := s.clock.Now()
		if err := s.repo.SetHelper(ctx, tx, need.ID, req.HelperID, req.AmountGivenCents, now); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, need.ID, req.HelperID, domain.EventKindHelperContacted, datatypes.JSONMap{
			"helper_id": req.HelperID.String(),
		})
	})
	if err != nil {
		return domain.Need{}, err
	}
	if !applied {
		return *need, nil
	}

	updated, err := s.reload(ctx, need.ID)
	if err != nil {
		return domain.Need{}, err
	}
	s.dispatch(ctx, &updated, domain.EffectMatchedOwner)
	s.dispatch(ctx, &updated, domain.EffectMatchedAdmin)
	return updated, nil
}

func (s *Service) Verify(ctx context.Context, req domain.VerifyNeedRequest) (domain.Need, error) {
	if req.AmountConfirmedCents != nil && *req.AmountConfirmedCents < 0 {
		return domain.Need{}, domain.ErrInvalidAmount
	}

	payload := datatypes.JSONMap{}
	if req.ProofReference != "" {
		payload["proof_reference"] = req.ProofReference
	}
	if req.AmountConfirmedCents != nil {
		payload["amount_confirmed_cents"] = *req.AmountConfirmedCents
	}

	var (
		need    *domain.Need
		applied bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		need, applied, err = s.transition(ctx, tx, req.NeedID, req.ActorID, domain.EventKindVerified, domain.StatusFulfilled, payload)
		if err != nil || !applied {
			return err
		}
		now := s.clock.Now()
		if err := s.repo.SetConfirmedAmount(ctx, tx, need.ID, req.AmountConfirmedCents, now); err != nil {
			return err
		}
		return s.appendEvent(ctx, tx, need.ID, req.ActorID, domain.EventKindCompletionRecorded, payload)
	})
	if err != nil {
		return domain.Need{}, err
	}
	if !applied {
		return *need, nil
	}

	updated, err := s.reload(ctx, need.ID)
	if err != nil {
		return domain.Need{}, err
	}
	s.dispatch(ctx, &updated, domain.EffectFulfilledAdmin)
	s.dispatch(ctx, &updated, domain.EffectFulfilledHelper)
	return updated, nil
}

func (s *Service) Close(ctx context.Context, req domain.CloseNeedRequest) (domain.Need, error) {
	var (
		need    *domain.Need
		applied bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		need, applied, err = s.transition(ctx, tx, req.NeedID, req.ActorID, domain.EventKindClosed, domain.StatusClosed, nil)
		if err != nil || !applied {
			return err
		}
		return s.repo.SetClosure(ctx, tx, need.ID, req.ActorID, s.clock.Now())
	})
	if err != nil {
		return domain.Need{}, err
	}
	if !applied {
		return *need, nil
	}
	return s.reload(ctx, need.ID)
}

func (s *Service) Promote(ctx context.Context, needID snowflake.ID, target domain.Status) (bool, error) {
	applied := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		need, err := s.repo.LockByID(ctx, tx, needID)
		if err != nil {
			return err
		}
		if need == nil {
			return nil
		}
		target := target.Canonical()
		current := need.Status.Canonical()
		// The need may have been claimed or closed while the job waited;
		// a promotion never forces a regression.
		if current.Rank() >= target.Rank() || !domain.CanTransition(current, target) {
			return nil
		}
		changed, err := s.repo.UpdateStatus(ctx, tx, needID, current, target, s.clock.Now())
		if err != nil || !changed {
			return err
		}
		applied = true
		obsmetrics.IncNeedTransition(string(current), string(target))
		return s.appendEvent(ctx, tx, needID, 0, domain.EventKindPromoted, datatypes.JSONMap{
			"status": string(target),
		})
	})
	return applied, err
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Need, error) {
	need, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Need{}, err
	}
	if need == nil {
		return domain.Need{}, domain.ErrNotFound
	}
	return *need, nil
}

func (s *Service) Events(ctx context.Context, needID snowflake.ID) ([]domain.NeedEvent, error) {
	return s.repo.ListEvents(ctx, s.db, needID)
}

// transition runs the shared check-then-apply sequence under the need's row
// lock: load, no-op when the target is already satisfied, reject edges the
// table does not define, compare-and-set the status, and append the event.
func (s *Service) transition(
	ctx context.Context,
	tx *gorm.DB,
	needID, actorID snowflake.ID,
	eventKind string,
	target domain.Status,
	payload datatypes.JSONMap,
) (*domain.Need, bool, error) {
	need, err := s.repo.LockByID(ctx, tx, needID)
	if err != nil {
		return nil, false, err
	}
	if need == nil {
		return nil, false, domain.ErrNotFound
	}

	target = target.Canonical()
	current := need.Status.Canonical()
	if current.Rank() >= target.Rank() {
		// Already satisfied or exceeded; silent no-op, never a regression.
		return need, false, nil
	}
	if !domain.CanTransition(current, target) {
		return nil, false, domain.ErrIllegalTransition
	}

	changed, err := s.repo.UpdateStatus(ctx, tx, needID, current, target, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if !changed {
		// Lost a race despite the lock; treat like the no-op branch.
		return need, false, nil
	}
	obsmetrics.IncNeedTransition(string(current), string(target))

	if payload == nil {
		payload = datatypes.JSONMap{}
	}
	payload["status"] = string(target)
	if err := s.appendEvent(ctx, tx, needID, actorID, eventKind, payload); err != nil {
		return nil, false, err
	}

	need.Status = target
	return need, true, nil
}

func (s *Service) appendEvent(ctx context.Context, tx *gorm.DB, needID, actorID snowflake.ID, kind string, payload datatypes.JSONMap) error {
	return s.repo.AppendEvent(ctx, tx, &domain.NeedEvent{
		ID:        s.genID.Generate(),
		NeedID:    needID,
		ActorID:   actorID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: s.clock.Now(),
	})
}

// geocodeIfNeeded enriches a need with coordinates. Failures are logged and
// swallowed; the committed status never depends on this.
func (s *Service) geocodeIfNeeded(ctx context.Context, need *domain.Need) {
	if s.geocoder == nil || need.Zip == "" || (need.Lat != nil && need.Lng != nil) {
		return
	}
	coords, err := s.geocoder.Resolve(ctx, need.Zip, s.cfg.GeocodeCountry)
	if err != nil {
		s.log.Warn("geocode failed",
			zap.String("need_id", need.ID.String()),
			zap.String("zip", need.Zip),
			zap.Error(err),
		)
		return
	}
	if err := s.repo.SetCoordinates(ctx, s.db, need.ID, coords.Lat, coords.Lng, s.clock.Now()); err != nil {
		s.log.Warn("persisting coordinates failed", zap.String("need_id", need.ID.String()), zap.Error(err))
	}
}

func (s *Service) dispatch(ctx context.Context, need *domain.Need, effect domain.EffectKind) {
	if s.notifier == nil {
		return
	}
	result, err := s.notifier.SendEffect(ctx, need, effect)
	if err != nil {
		s.log.Warn("notification dispatch failed",
			zap.String("need_id", need.ID.String()),
			zap.String("effect", string(effect)),
			zap.Error(err),
		)
		return
	}
	if result != domain.NotificationSent {
		s.log.Debug("notification not sent",
			zap.String("need_id", need.ID.String()),
			zap.String("effect", string(effect)),
			zap.String("result", string(result)),
		)
	}
}

func (s *Service) reload(ctx context.Context, id snowflake.ID) (domain.Need, error) {
	need, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Need{}, err
	}
	if need == nil {
		return domain.Need{}, domain.ErrNotFound
	}
	return *need, nil
}
