package search

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/otherscentered/platform/internal/clock"
	"github.com/otherscentered/platform/internal/geocode"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Geocoder resolves the search center's postal code.
type Geocoder interface {
	Resolve(ctx context.Context, postalCode, country string) (geocode.Coordinates, error)
}

// Request carries the grid filters. Zero values mean "no filter".
type Request struct {
	Statuses    []needdomain.Status
	Category    string
	City        string
	Urgency     string
	Amount      string
	Zip         string
	RadiusMiles float64
	Limit       int
}

// Urgency buckets over the due date.
const (
	UrgencyToday   = "today"
	UrgencyNext7   = "next7"
	UrgencyMonth   = "month"
	UrgencyOverdue = "overdue"
	UrgencyNoDue   = "nodue"
)

var (
	searchZipPattern   = regexp.MustCompile(`^[0-9]{3,10}$`)
	amountRangePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)
	amountMinPattern   = regexp.MustCompile(`^(\d+)\+$`)
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Geocoder Geocoder `optional:"true"`
}

// Service turns grid filters into one query against the needs table.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	geocoder Geocoder
}

func New(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("search.service"),
		clock:    p.Clock,
		geocoder: p.Geocoder,
	}
}

// Search returns needs matching the filters, soonest due date first.
func (s *Service) Search(ctx context.Context, req Request) ([]needdomain.Need, error) {
	statuses := req.Statuses
	if len(statuses) == 0 {
		// Default grid visibility.
		statuses = []needdomain.Status{needdomain.StatusNew, needdomain.StatusActive}
	}
	canonical := make([]needdomain.Status, 0, len(statuses))
	for _, st := range statuses {
		canonical = append(canonical, st.Canonical())
	}

	stmt := s.db.WithContext(ctx).
		Model(&needdomain.Need{}).
		Where("status IN ?", canonical)

	if category := strings.TrimSpace(req.Category); category != "" {
		stmt = stmt.Where("category = ?", category)
	}
	if city := strings.TrimSpace(req.City); city != "" {
		stmt = stmt.Where("city LIKE ?", "%"+city+"%")
	}

	stmt = s.applyZipFilter(ctx, stmt, req)
	stmt = s.applyUrgencyFilter(stmt, req.Urgency)
	stmt = applyAmountFilter(stmt, req.Amount)

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	var needs []needdomain.Need
	err := stmt.
		Order("due_date IS NULL, due_date ASC, id ASC").
		Limit(limit).
		Find(&needs).Error
	if err != nil {
		return nil, err
	}
	return needs, nil
}

// applyZipFilter adds either a bounding-box predicate (zip + radius) or an
// exact zip match. A failed geocode degrades to no radius filter at all.
func (s *Service) applyZipFilter(ctx context.Context, stmt *gorm.DB, req Request) *gorm.DB {
	zip := strings.TrimSpace(req.Zip)
	if zip == "" {
		return stmt
	}

	if req.RadiusMiles > 0 && searchZipPattern.MatchString(zip) && s.geocoder != nil {
		coords, err := s.geocoder.Resolve(ctx, zip, "")
		if err != nil {
			s.log.Debug("search center geocode failed", zap.String("zip", zip), zap.Error(err))
			return stmt
		}
		box := BoundingBoxFor(coords.Lat, coords.Lng, req.RadiusMiles)
		if box == nil {
			return stmt
		}
		return stmt.
			Where("lat BETWEEN ? AND ?", box.LatMin, box.LatMax).
			Where("lng BETWEEN ? AND ?", box.LngMin, box.LngMax)
	}

	return stmt.Where("zip = ?", zip)
}

func (s *Service) applyUrgencyFilter(stmt *gorm.DB, urgency string) *gorm.DB {
	now := s.clock.Now()
	today := now.Truncate(24 * time.Hour)

	switch strings.TrimSpace(urgency) {
	case UrgencyToday:
		return stmt.Where("due_date >= ? AND due_date < ?", today, today.AddDate(0, 0, 1))
	case UrgencyNext7:
		return stmt.Where("due_date >= ? AND due_date < ?", today, today.AddDate(0, 0, 8))
	case UrgencyMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return stmt.Where("due_date >= ? AND due_date < ?", monthStart, monthStart.AddDate(0, 1, 0))
	case UrgencyOverdue:
		return stmt.Where("due_date < ?", today)
	case UrgencyNoDue:
		return stmt.Where("due_date IS NULL")
	default:
		return stmt
	}
}

// applyAmountFilter parses "N-M" and "N+" dollar ranges against the
// requested amount.
func applyAmountFilter(stmt *gorm.DB, amount string) *gorm.DB {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return stmt
	}

	if m := amountRangePattern.FindStringSubmatch(amount); m != nil {
		lo, _ := strconv.ParseInt(m[1], 10, 64)
		hi, _ := strconv.ParseInt(m[2], 10, 64)
		return stmt.Where("amount_requested_cents BETWEEN ? AND ?", lo*100, hi*100)
	}
	if m := amountMinPattern.FindStringSubmatch(amount); m != nil {
		lo, _ := strconv.ParseInt(m[1], 10, 64)
		return stmt.Where("amount_requested_cents >= ?", lo*100)
	}
	return stmt
}
