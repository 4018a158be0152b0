// Package config assembles service settings from .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/listing-api/internal/env"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type MongoConfig struct {
	URI        string
	DB         string
	Collection string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type LogConfig struct {
	Level      string
	Format     string
	FluentHost string
	FluentPort int
}

type PhotoConfig struct {
	FetchTimeout time.Duration
	FetchPerSec  float64
	Width        int
	Height       int
}

type AppConfig struct {
	Port             string
	StoreDriver      string
	Mongo            MongoConfig
	PostgresDSN      string
	SQLitePath       string
	EnforceUniqueKey bool
	Redis            RedisConfig
	AMQP             AMQPConfig
	Log              LogConfig
	RateLimitPerMin  int
	MaxUploadBytes   int64
	Photos           PhotoConfig
}

// Load reads envPath (default .env) when it exists, then the environment.
func Load(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath...)
	} else {
		err = godotenv.Load()
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &AppConfig{
		Port:        env.Get("PORT", "4002"),
		StoreDriver: strings.ToLower(env.Get("STORE_DRIVER", DriverMemory)),
		Mongo: MongoConfig{
			URI:        env.Get("MONGO_URI", ""),
			DB:         env.Get("MONGO_DB", "listings"),
			Collection: env.Get("MONGO_COLLECTION", "properties"),
		},
		PostgresDSN:      env.Get("PG_DSN", ""),
		SQLitePath:       env.Get("SQLITE_PATH", "listings.db"),
		EnforceUniqueKey: env.GetBool("ENFORCE_UNIQUE_KEY", false),
		Redis: RedisConfig{
			Addr:     env.Get("REDIS_ADDR", ""),
			Password: env.Get("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			TTL:      env.GetDuration("SEARCH_CACHE_TTL", 2*time.Minute),
		},
		AMQP: AMQPConfig{
			URL:      env.Get("AMQP_URL", ""),
			Exchange: env.Get("AMQP_EXCHANGE", "listings.events"),
		},
		Log: LogConfig{
			Level:      env.Get("LOG_LEVEL", "info"),
			Format:     env.Get("LOG_FORMAT", "text"),
			FluentHost: env.Get("FLUENT_HOST", ""),
			FluentPort: env.GetInt("FLUENT_PORT", 24224),
		},
		RateLimitPerMin: env.GetInt("RATE_LIMIT_PER_MIN", 100),
		MaxUploadBytes:  int64(env.GetInt("MAX_UPLOAD_MB", 20)) << 20,
		Photos: PhotoConfig{
			FetchTimeout: env.GetDuration("PHOTO_FETCH_TIMEOUT", 10*time.Second),
			FetchPerSec:  env.GetFloat("PHOTO_FETCH_PER_SEC", 2),
			Width:        env.GetInt("IMAGE_WIDTH", 600),
			Height:       env.GetInt("IMAGE_HEIGHT", 400),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store driver has what it needs.
func (c *AppConfig) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required when STORE_DRIVER=mongo")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("PG_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Photos.Width <= 0 || c.Photos.Height <= 0 {
		return fmt.Errorf("image size %dx%d must be positive", c.Photos.Width, c.Photos.Height)
	}
	return nil
}
