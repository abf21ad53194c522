package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr  string
	BaseURL   string
	LogLevel  string
	LogFormat string
	NodeID    int64

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeocodeAPIKey   string
	GeocodeEndpoint string
	GeocodeCountry  string
	GeocodeTimeout  time.Duration
	GeocodeCacheTTL time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AdminEmail   string

	PromotionDelay    time.Duration
	SchedulerInterval time.Duration
	SchedulerBatch    int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "platform"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr:  getenv("HTTP_ADDR", ":8080"),
		BaseURL:   strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
		NodeID:    int64(getenvInt("NODE_ID", 1)),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "postgres"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		GeocodeAPIKey:   strings.TrimSpace(getenv("GEOCODE_API_KEY", "")),
		GeocodeEndpoint: getenv("GEOCODE_ENDPOINT", "https://maps.googleapis.com/maps/api/geocode/json"),
		GeocodeCountry:  getenv("GEOCODE_COUNTRY", "US"),
		GeocodeTimeout:  getenvDuration("GEOCODE_TIMEOUT", 10*time.Second),
		GeocodeCacheTTL: getenvDuration("GEOCODE_CACHE_TTL", 7*24*time.Hour),

		SMTPHost:     getenv("SMTP_HOST", "localhost"),
		SMTPPort:     getenvInt("SMTP_PORT", 587),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", "no-reply@otherscentered.org"),
		AdminEmail:   strings.TrimSpace(getenv("ADMIN_EMAIL", "")),

		PromotionDelay:    getenvDuration("PROMOTION_DELAY", 7*24*time.Hour),
		SchedulerInterval: getenvDuration("SCHEDULER_INTERVAL", time.Minute),
		SchedulerBatch:    getenvInt("SCHEDULER_BATCH", 100),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
