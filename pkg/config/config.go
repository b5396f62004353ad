package config

import (
	"fmt"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT" env-default:"5432"`
		Host    string `env:"POSTGRES_HOST" env-default:"localhost"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Telegram struct {
		User    int64  `env:"TELEGRAM_USER"`
		Token   string `env:"TELEGRAM_TOKEN" env-required:"true"`
		Channel string `env:"TELEGRAM_CHANNEL" env-required:"true"`
	}
	Apify struct {
		Token   string `env:"APIFY_TOKEN" env-required:"true"`
		ActorID string `env:"APIFY_ACTOR_ID" env-default:"muhammetakkurtt~truth-social-scraper"`
		BaseURL string `env:"APIFY_BASE_URL" env-default:"https://api.apify.com/v2"`
	}
	Poller struct {
		CheckInterval string `env:"POLLER_CHECK_INTERVAL" env-default:"*/5 * * * *"`
		PostLimit     int    `env:"POLLER_POST_LIMIT" env-default:"20"`
	}
}

var (
	once    sync.Once
	cfg     *Config
	readErr error
)

// New reads configuration from the environment. Missing required credentials
// abort startup.
func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			readErr = fmt.Errorf("failed to read configuration: %w\n%s", err, help)
			cfg = nil
		}
	})
	return cfg, readErr
}

// GetDSN returns the postgres connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Pass,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Name,
		c.Postgres.SslMode,
	)
}
