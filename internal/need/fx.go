package need

import (
	"github.com/otherscentered/platform/internal/config"
	"github.com/otherscentered/platform/internal/geocode"
	"github.com/otherscentered/platform/internal/need/domain"
	"github.com/otherscentered/platform/internal/need/repository"
	"github.com/otherscentered/platform/internal/need/service"
	"go.uber.org/fx"
)

var Module = fx.Module("need.service",
	fx.Provide(repository.Provide),
	fx.Provide(serviceConfig),
	fx.Provide(func(c *geocode.Client) domain.Geocoder { return c }),
	fx.Provide(service.New),
)

func serviceConfig(cfg config.Config) service.Config {
	return service.Config{
		PromotionDelay: cfg.PromotionDelay,
		GeocodeCountry: cfg.GeocodeCountry,
	}
}
