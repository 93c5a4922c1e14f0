package authgate

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// OAuthProviderConfig holds one provider's client registration. A
// provider with an empty client id is treated as not configured.
type OAuthProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

func (c OAuthProviderConfig) Enabled() bool { return c.ClientID != "" }

// Config is the process-wide configuration, read once at start and
// passed explicitly to the components that need it. Secrets come from
// the environment.
type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"5h"`
	CookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"authgate_session"`
	CookieMaxAge  int           `env:"SESSION_COOKIE_MAX_AGE" envDefault:"18000"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	Google OAuthProviderConfig `envPrefix:"OAUTH_GOOGLE_"`
	GitHub OAuthProviderConfig `envPrefix:"OAUTH_GITHUB_"`
}

// LoadConfig parses the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	return cfg, nil
}
