package geocode

import (
	"github.com/otherscentered/platform/internal/clock"
	"github.com/otherscentered/platform/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("geocode",
	fx.Provide(NewCacheFromConfig),
	fx.Provide(NewClientFromConfig),
)

// NewCacheFromConfig picks the redis-backed cache when an address is
// configured, otherwise an in-process one. Both honor the same TTL contract.
func NewCacheFromConfig(cfg config.Config, clk clock.Clock, log *zap.Logger) Cache {
	if cfg.RedisAddr == "" {
		log.Named("geocode").Info("redis not configured, using in-process geo cache")
		return NewMemoryCache(clk)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisCache(client)
}

func NewClientFromConfig(cfg config.Config, cache Cache, log *zap.Logger) *Client {
	return NewClient(Config{
		APIKey:         cfg.GeocodeAPIKey,
		Endpoint:       cfg.GeocodeEndpoint,
		DefaultCountry: cfg.GeocodeCountry,
		Timeout:        cfg.GeocodeTimeout,
		CacheTTL:       cfg.GeocodeCacheTTL,
	}, cache, log)
}
