package config

import (
	"os"
	"strconv"
	"time"

	"mines_arena/internal/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	AppPort       string
	JWTSecret     string
	AllowedOrigin string
	LogLevel      string
	LogJSON       bool

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Game limits
	MinBet         decimal.Decimal
	MaxBet         decimal.Decimal
	APIRateLimit   int
	APIRateWindow  time.Duration
	GameRateLimit  int
	GameRateWindow time.Duration

	// Room housekeeping
	RoomRetention  time.Duration
	RoomSweepEvery time.Duration
}

// Load reads the configuration from env (and .env when present).
func Load() *Config {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	cfg := &Config{
		AppPort:        envOr("APP_PORT", "8080"),
		JWTSecret:      jwtSecret,
		AllowedOrigin:  os.Getenv("ALLOWED_ORIGIN"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogJSON:        os.Getenv("LOG_JSON") == "true",
		StoreDriver:    envOr("STORE_DRIVER", StoreMemory),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  envOr("MONGODB_DATABASE", "mines_arena"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		MinBet:         envDecimal("MIN_BET", decimal.NewFromInt(1)),
		MaxBet:         envDecimal("MAX_BET", decimal.NewFromInt(100000)),
		APIRateLimit:   envInt("API_RATE_LIMIT", 120),
		APIRateWindow:  time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		GameRateLimit:  envInt("GAME_RATE_LIMIT", 60),
		GameRateWindow: time.Duration(envInt("GAME_RATE_WINDOW", 60)) * time.Second,
		RoomRetention:  time.Duration(envInt("ROOM_RETENTION_HOURS", 24*7)) * time.Hour,
		RoomSweepEvery: time.Duration(envInt("ROOM_SWEEP_MINUTES", 60)) * time.Minute,
	}

	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			logger.Fatal("DATABASE_URL is not set", "store", cfg.StoreDriver)
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			logger.Fatal("MONGODB_URI is not set", "store", cfg.StoreDriver)
		}
	default:
		logger.Fatal("unknown STORE_DRIVER", "store", cfg.StoreDriver)
	}

	if cfg.MaxBet.LessThan(cfg.MinBet) {
		logger.Fatal("MAX_BET is below MIN_BET", "min_bet", cfg.MinBet.String(), "max_bet", cfg.MaxBet.String())
	}

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt ignores values that are not positive integers, except REDIS_DB which may be 0.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && key != "REDIS_DB") {
		logger.Warn("ignoring invalid env value", "key", key, "value", v)
		return def
	}
	return n
}

func envDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		logger.Warn("ignoring invalid env value", "key", key, "value", v)
		return def
	}
	return d
}
