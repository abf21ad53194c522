package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/otherscentered/platform/internal/clock"
	memberdomain "github.com/otherscentered/platform/internal/member/domain"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	obsmetrics "github.com/otherscentered/platform/internal/observability/metrics"
	"github.com/otherscentered/platform/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config carries the addresses the dispatcher cannot derive from a need.
type Config struct {
	AdminEmail string
	BaseURL    string
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    needdomain.Repository
	Members memberdomain.Repository
	Mailer  email.Provider
	Config  Config
}

// Dispatcher sends each notification effect at most once per need. The
// persisted flag is claimed before the mailer call and released again when
// the send fails, so a failed effect stays retryable.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    needdomain.Repository
	members memberdomain.Repository
	mailer  email.Provider
	cfg     Config
}

func New(p Params) needdomain.Notifier {
	return &Dispatcher{
		db:      p.DB,
		log:     p.Log.Named("notify.dispatcher"),
		clock:   p.Clock,
		repo:    p.Repo,
		members: p.Members,
		mailer:  p.Mailer,
		cfg:     p.Config,
	}
}

func (d *Dispatcher) SendEffect(ctx context.Context, need *needdomain.Need, effect needdomain.EffectKind) (needdomain.NotificationResult, error) {
	tpl, ok := templates[effect]
	if !ok {
		return "", fmt.Errorf("unknown effect %q", effect)
	}

	// An already dispatched effect reports already_sent even when the
	// recipient can no longer be resolved.
	sent, err := d.repo.HasNotificationFlag(ctx, d.db, need.ID, effect)
	if err != nil {
		return "", err
	}
	if sent {
		obsmetrics.IncNotification(string(effect), string(needdomain.NotificationAlreadySent))
		return needdomain.NotificationAlreadySent, nil
	}

	recipient, err := d.resolveRecipient(ctx, need, effect)
	if err != nil {
		return "", err
	}
	if recipient == "" {
		// No flag is set: a retry once an address exists can still succeed.
		obsmetrics.IncNotification(string(effect), string(needdomain.NotificationRecipientMissing))
		return needdomain.NotificationRecipientMissing, nil
	}

	claimed, err := d.repo.ClaimNotificationFlag(ctx, d.db, need.ID, effect, d.clock.Now())
	if err != nil {
		return "", err
	}
	if !claimed {
		obsmetrics.IncNotification(string(effect), string(needdomain.NotificationAlreadySent))
		return needdomain.NotificationAlreadySent, nil
	}

	subject, body := d.render(tpl, need)
	if err := d.mailer.Send(ctx, []string{recipient}, subject, body); err != nil {
		if releaseErr := d.repo.ReleaseNotificationFlag(ctx, d.db, need.ID, effect); releaseErr != nil {
			d.log.Error("failed to release notification flag",
				zap.String("need_id", need.ID.String()),
				zap.String("effect", string(effect)),
				zap.Error(releaseErr),
			)
		}
		obsmetrics.IncNotification(string(effect), "error")
		return "", err
	}

	obsmetrics.IncNotification(string(effect), string(needdomain.NotificationSent))
	return needdomain.NotificationSent, nil
}

// resolveRecipient picks the destination address per effect: admin effects
// go to the configured admin, owner effects to the owning member with the
// need's contact field as fallback, helper effects to the assigned helper.
func (d *Dispatcher) resolveRecipient(ctx context.Context, need *needdomain.Need, effect needdomain.EffectKind) (string, error) {
	switch effect {
	case needdomain.EffectAdminNewNeed, needdomain.EffectMatchedAdmin, needdomain.EffectFulfilledAdmin:
		return strings.TrimSpace(d.cfg.AdminEmail), nil
	case needdomain.EffectNeedLive, needdomain.EffectMatchedOwner:
		addr, err := d.memberEmail(ctx, need.OwnerID)
		if err != nil {
			return "", err
		}
		if addr == "" {
			addr = strings.TrimSpace(need.ContactEmail)
		}
		return addr, nil
	case needdomain.EffectFulfilledHelper:
		if need.HelperID == nil {
			return "", nil
		}
		return d.memberEmail(ctx, *need.HelperID)
	default:
		return "", fmt.Errorf("unknown effect %q", effect)
	}
}

func (d *Dispatcher) memberEmail(ctx context.Context, id snowflake.ID) (string, error) {
	if id == 0 {
		return "", nil
	}
	member, err := d.members.FindByID(ctx, d.db, id)
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", nil
	}
	return strings.TrimSpace(member.Email), nil
}

func (d *Dispatcher) render(tpl Template, need *needdomain.Need) (string, string) {
	amount := ""
	if need.AmountConfirmedCents != nil {
		amount = formatCents(*need.AmountConfirmedCents)
	} else if need.AmountGivenCents != nil {
		amount = formatCents(*need.AmountGivenCents)
	} else {
		amount = formatCents(need.AmountRequestedCents)
	}

	// Public links prefer the permalink slug; admin links stay id-based.
	ref := need.ID.String()
	if need.Slug != "" {
		ref = need.Slug
	}

	replacer := strings.NewReplacer(
		"{need_title}", need.Title,
		"{need_id}", need.ID.String(),
		"{need_link}", fmt.Sprintf("%s/needs/%s", d.cfg.BaseURL, ref),
		"{edit_link}", fmt.Sprintf("%s/admin/needs/%s", d.cfg.BaseURL, need.ID),
		"{amount}", amount,
	)

	subject := replacer.Replace(tpl.Subject)
	body := replacer.Replace(tpl.Body)
	// Plain-text templates delivered as simple HTML.
	body = strings.ReplaceAll(body, "\n", "<br>\n")
	return subject, body
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
