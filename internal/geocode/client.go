package geocode

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	obsmetrics "github.com/otherscentered/platform/internal/observability/metrics"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput        = errors.New("geocode_invalid_input")
	ErrProviderUnreachable = errors.New("geocode_provider_unreachable")
	ErrNoResult            = errors.New("geocode_no_result")
)

// Permissive ZIP/postal format check. Avoids URL injection; the provider
// decides whether the code actually exists.
var postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9\- ]{3,12}$`)

// Config configures the geocoding client.
type Config struct {
	APIKey         string
	Endpoint       string
	DefaultCountry string
	Timeout        time.Duration
	CacheTTL       time.Duration
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	if c.DefaultCountry == "" {
		c.DefaultCountry = "US"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 7 * 24 * time.Hour
	}
	return c
}

// Client resolves free-text postal codes into coordinates, consulting the
// cache before any provider call.
type Client struct {
	cfg   Config
	cache Cache
	http  *http.Client
	log   *zap.Logger
}

func NewClient(cfg Config, cache Cache, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:   cfg,
		cache: cache,
		http:  &http.Client{Timeout: cfg.Timeout},
		log:   log.Named("geocode.client"),
	}
}

type providerResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Resolve returns coordinates for a postal code. A repeated call for the
// same code and country is a cache hit and makes no provider call.
func (c *Client) Resolve(ctx context.Context, postalCode, country string) (Coordinates, error) {
	postalCode = strings.TrimSpace(postalCode)
	if !postalCodePattern.MatchString(postalCode) {
		obsmetrics.IncGeocodeLookup("invalid_input")
		return Coordinates{}, ErrInvalidInput
	}
	if country == "" {
		country = c.cfg.DefaultCountry
	}

	key := cacheKey(postalCode, country)
	if coords, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn("cache read failed", zap.String("postal_code", postalCode), zap.Error(err))
	} else if ok {
		obsmetrics.IncGeocodeCacheHit()
		obsmetrics.IncGeocodeLookup("cache_hit")
		return coords, nil
	}

	if c.cfg.APIKey == "" {
		obsmetrics.IncGeocodeLookup("unreachable")
		return Coordinates{}, fmt.Errorf("%w: api key not configured", ErrProviderUnreachable)
	}

	coords, err := c.lookup(ctx, postalCode, country)
	if err != nil {
		return Coordinates{}, err
	}

	if err := c.cache.Set(ctx, key, coords, c.cfg.CacheTTL); err != nil {
		c.log.Warn("cache write failed", zap.String("postal_code", postalCode), zap.Error(err))
	}
	obsmetrics.IncGeocodeLookup("ok")
	return coords, nil
}

func (c *Client) lookup(ctx context.Context, postalCode, country string) (Coordinates, error) {
	params := url.Values{}
	params.Set("address", postalCode+","+country)
	params.Set("key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		obsmetrics.IncGeocodeLookup("unreachable")
		return Coordinates{}, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		obsmetrics.IncGeocodeLookup("unreachable")
		return Coordinates{}, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}

	// Provider soft errors: anything but OK, or OK with no usable location.
	if body.Status != "OK" || len(body.Results) == 0 {
		status := body.Status
		if status == "" {
			status = "UNKNOWN"
		}
		c.log.Warn("no geocode result",
			zap.String("postal_code", postalCode),
			zap.String("provider_status", status),
		)
		obsmetrics.IncGeocodeLookup("no_result")
		return Coordinates{}, fmt.Errorf("%w: provider status %s", ErrNoResult, status)
	}

	return body.Results[0].Geometry.Location, nil
}

func cacheKey(postalCode, country string) string {
	return fmt.Sprintf("geo:zip:%x", md5.Sum([]byte(postalCode+country)))
}
