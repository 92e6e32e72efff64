package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Env string

const (
	EnvProd Env = "prod"
	EnvDev  Env = "dev"
)

func (e Env) IsValid() bool {
	switch e {
	case EnvProd, EnvDev:
		return true
	}
	return false
}

type Config struct {
	APIServerHost string `env:"API_SERVER_HOST"`
	APIServerPort string `env:"API_SERVER_PORT" envDefault:"3000"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisHost          string `env:"REDIS_HOST"`
	RedisPort          string `env:"REDIS_PORT" envDefault:"6379"`
	RedisEventsChannel string `env:"REDIS_EVENTS_CHANNEL" envDefault:"reports:events"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`

	// GeohashPrecision 6 gives cells of roughly 1.2 x 0.6 km.
	GeohashPrecision int           `env:"GEOHASH_PRECISION" envDefault:"6"`
	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"5m"`
	ExpiryWindow     time.Duration `env:"EXPIRY_WINDOW" envDefault:"72h"`

	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"EMAIL_USER"`
	SMTPPass string `env:"EMAIL_PASS"`

	Env Env `env:"ENV" envDefault:"prod"`
}

func New() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.Env.IsValid() {
		return nil, fmt.Errorf("invalid env variable (must be 'prod' or 'dev')")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GeohashPrecision < 1 || cfg.GeohashPrecision > 12 {
		return nil, fmt.Errorf("invalid GEOHASH_PRECISION %d (must be 1-12)", cfg.GeohashPrecision)
	}
	return &cfg, nil
}
