package scheduler

import (
	"context"
	"time"

	"github.com/otherscentered/platform/internal/config"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(schedulerConfig),
	fx.Provide(NewPromotions),
	fx.Provide(func(p *Promotions) needdomain.Promoter { return p }),
	fx.Provide(New),
	fx.Invoke(runTicker),
)

func schedulerConfig(cfg config.Config) Config {
	return Config{
		Interval:  cfg.SchedulerInterval,
		BatchSize: cfg.SchedulerBatch,
	}
}

func runTicker(lc fx.Lifecycle, s *Scheduler, log *zap.Logger) {
	log = log.Named("scheduler.ticker")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(s.cfg.Interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := s.RunOnce(ctx); err != nil {
							log.Warn("tick failed", zap.Error(err))
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
