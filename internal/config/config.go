package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
	CorsOrigin     string `env:"CORS_ORIGIN"      envDefault:"*"    validate:"required"`
	PublicURL      string `env:"PUBLIC_URL"       envDefault:"http://localhost:5173" validate:"url"`
	LogMode        string `env:"LOG_MODE"         envDefault:"development" validate:"oneof=development production"`

	LockDuration     time.Duration `env:"LOCK_DURATION"     envDefault:"20s" validate:"gt=0"`
	DecisionDuration time.Duration `env:"DECISION_DURATION" envDefault:"15s" validate:"gt=0"`
	RoomIdleTimeout  time.Duration `env:"ROOM_IDLE_TIMEOUT" envDefault:"30m" validate:"gt=0"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL"    envDefault:"60s" validate:"gt=0"`
	RoomCodeStyle    string        `env:"ROOM_CODE_STYLE"   envDefault:"numeric" validate:"oneof=numeric alnum"`

	WsReadLimit int64   `env:"WS_READ_LIMIT" envDefault:"4096" validate:"min=256"`
	WsRateLimit float64 `env:"WS_RATE_LIMIT" envDefault:"20"   validate:"gt=0"`
	WsRateBurst int     `env:"WS_RATE_BURST" envDefault:"40"   validate:"min=1"`

	StoreDriver  string        `env:"STORE_DRIVER"  envDefault:"none" validate:"oneof=none postgres redis"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"10s"  validate:"gt=0"`

	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`
	RedisDb   int    `env:"REDIS_DB"   envDefault:"0"    validate:"min=0,max=15"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"buzzin_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"buzzin_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"buzzin_db"`
}

// CorsOrigins splits CORS_ORIGIN on commas.
func (c *Config) CorsOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CorsOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}
	return Parse()
}

// Parse reads and validates the config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	// Parse config from environment variables
	if err := env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
