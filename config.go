package lumore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lborres/lumore/adapters/file"
	"github.com/lborres/lumore/adapters/memory"
	mongoadapter "github.com/lborres/lumore/adapters/mongo"
	pgxadapter "github.com/lborres/lumore/adapters/pgx"
	redisadapter "github.com/lborres/lumore/adapters/redis"
	"github.com/lborres/lumore/pkg/crypto"
)

// Session store kinds accepted by LUMORE_SESSION_STORE
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

var ErrStoreNotConfigured = errors.New("session store connection is not configured")

const (
	defaultRedisAddr = "localhost:6379"
	defaultMongoDB   = "lumore"
)

// Settings holds everything read from the environment
type Settings struct {
	APIURL    string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	Debounce  time.Duration

	SessionStore      string
	SessionFile       string
	SessionPassphrase string
	RedisAddr         string
	RedisPassword     string
	PostgresDSN       string
	MongoURI          string
	MongoDB           string

	// Latitude and Longitude are only meaningful when HasLocation is set
	Latitude    float64
	Longitude   float64
	HasLocation bool

	CallbackAddr string
	LogLevel     slog.Level
}

// LoadConfig reads .env from the working directory, if present, and then
// the LUMORE_* environment variables. Variables already set in the
// environment win over .env entries.
func LoadConfig() (*Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	s := &Settings{
		APIURL:    envString("LUMORE_API_URL", ""),
		Timeout:   envDuration("LUMORE_TIMEOUT", 0),
		RateLimit: envFloat("LUMORE_RATE_LIMIT", 0),
		RateBurst: envInt("LUMORE_RATE_BURST", 1),
		Debounce:  envDuration("LUMORE_DEBOUNCE", 0),

		SessionStore:      strings.ToLower(envString("LUMORE_SESSION_STORE", StoreFile)),
		SessionFile:       envString("LUMORE_SESSION_FILE", ""),
		SessionPassphrase: envString("LUMORE_SESSION_PASSPHRASE", ""),
		RedisAddr:         envString("LUMORE_REDIS_ADDR", defaultRedisAddr),
		RedisPassword:     envString("LUMORE_REDIS_PASSWORD", ""),
		PostgresDSN:       envString("LUMORE_POSTGRES_DSN", ""),
		MongoURI:          envString("LUMORE_MONGO_URI", ""),
		MongoDB:           envString("LUMORE_MONGO_DB", defaultMongoDB),

		CallbackAddr: envString("LUMORE_CALLBACK_ADDR", ""),
	}

	if s.APIURL == "" {
		return nil, ErrBaseURLRequired
	}

	_, hasLat := os.LookupEnv("LUMORE_LATITUDE")
	_, hasLon := os.LookupEnv("LUMORE_LONGITUDE")
	if hasLat && hasLon {
		s.Latitude = envFloat("LUMORE_LATITUDE", 0)
		s.Longitude = envFloat("LUMORE_LONGITUDE", 0)
		s.HasLocation = true
	}

	if level := envString("LUMORE_LOG_LEVEL", ""); level != "" {
		if err := s.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid LUMORE_LOG_LEVEL: %w", err)
		}
	}

	switch s.SessionStore {
	case StoreMemory, StoreFile, StoreRedis, StorePostgres, StoreMongo:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSessionStore, s.SessionStore)
	}

	return s, nil
}

// Config turns settings into a Config using store and logger
func (s *Settings) Config(store SessionStore, logger *slog.Logger) Config {
	return Config{
		BaseURL:       s.APIURL,
		Store:         store,
		Logger:        logger,
		Timeout:       s.Timeout,
		RateLimit:     s.RateLimit,
		RateBurst:     s.RateBurst,
		DebounceDelay: s.Debounce,
		CallbackAddr:  s.CallbackAddr,
	}
}

// OpenStore connects the configured session store.
// The returned close function releases its connections.
func (s *Settings) OpenStore(ctx context.Context) (SessionStore, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch s.SessionStore {
	case StoreMemory:
		return memory.New(), noop, nil

	case StoreFile:
		path := s.SessionFile
		if path == "" {
			var err error
			if path, err = file.DefaultPath(); err != nil {
				return nil, nil, err
			}
		}
		var opts []file.Option
		if s.SessionPassphrase != "" {
			sealer, err := crypto.NewSealer(s.SessionPassphrase)
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, file.WithSealer(sealer))
		}
		return file.New(path, opts...), noop, nil

	case StoreRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisadapter.New(rdb), func(context.Context) error { return rdb.Close() }, nil

	case StorePostgres:
		if s.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("%w: LUMORE_POSTGRES_DSN is required", ErrStoreNotConfigured)
		}
		pool, err := pgxpool.New(ctx, s.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		adapter := pgxadapter.New(pool, pgxadapter.DefaultName)
		if err := adapter.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return adapter, func(context.Context) error { pool.Close(); return nil }, nil

	case StoreMongo:
		if s.MongoURI == "" {
			return nil, nil, fmt.Errorf("%w: LUMORE_MONGO_URI is required", ErrStoreNotConfigured)
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		store := mongoadapter.New(client.Database(s.MongoDB), mongoadapter.DefaultName)
		return store, client.Disconnect, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSessionStore, s.SessionStore)
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
