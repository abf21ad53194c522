package notify

import (
	"github.com/otherscentered/platform/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("notify",
	fx.Provide(dispatcherConfig),
	fx.Provide(New),
)

func dispatcherConfig(cfg config.Config) Config {
	return Config{
		AdminEmail: cfg.AdminEmail,
		BaseURL:    cfg.BaseURL,
	}
}
