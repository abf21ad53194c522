package search

import (
	"github.com/otherscentered/platform/internal/geocode"
	"go.uber.org/fx"
)

var Module = fx.Module("search",
	fx.Provide(func(c *geocode.Client) Geocoder { return c }),
	fx.Provide(New),
)
