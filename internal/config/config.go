package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds server settings parsed from the environment.
type Config struct {
	Addr     string `env:"AUTHGRID_ADDR" envDefault:":8080"`
	PGDSN    string `env:"AUTHGRID_PG_DSN"`
	RedisURL string `env:"AUTHGRID_REDIS_URL" envDefault:"redis://localhost:6379/0"`

	Issuer         string `env:"AUTHGRID_ISSUER" envDefault:"https://auth.example.com"`
	PrivateKeyPEM  string `env:"AUTHGRID_PRIVATE_KEY_PEM"`
	PrivateKeyPath string `env:"AUTHGRID_PRIVATE_KEY_PATH"`

	AccessTokenTTL  time.Duration `env:"AUTHGRID_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"AUTHGRID_REFRESH_TOKEN_TTL" envDefault:"720h"`
	AuthCodeTTL     time.Duration `env:"AUTHGRID_AUTH_CODE_TTL" envDefault:"10m"`
	SessionTTL      time.Duration `env:"AUTHGRID_SESSION_TTL" envDefault:"168h"`

	CookieName   string `env:"AUTHGRID_SESSION_COOKIE_NAME" envDefault:"sso_session"`
	CookieSecure bool   `env:"AUTHGRID_SESSION_COOKIE_SECURE" envDefault:"true"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
