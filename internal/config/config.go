package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	StoreURL            string        `mapstructure:"STORE_URL"`
	StoreAPIKey         string        `mapstructure:"STORE_API_KEY"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	AuthJWTSecret       string        `mapstructure:"AUTH_JWT_SECRET"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	ReportWebhookURL    string        `mapstructure:"REPORT_WEBHOOK_URL"`
	ReportWebhookSecret string        `mapstructure:"REPORT_WEBHOOK_SECRET"`
	WebhookTimeout      time.Duration `mapstructure:"WEBHOOK_TIMEOUT"`
	EditorIdleTTL       time.Duration `mapstructure:"EDITOR_IDLE_TTL"`
}

var envKeys = []string{
	"PORT",
	"ENV",
	"LOG_LEVEL",
	"STORE_URL",
	"STORE_API_KEY",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"AUTH_JWT_SECRET",
	"CORS_ORIGINS",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"REPORT_WEBHOOK_URL",
	"REPORT_WEBHOOK_SECRET",
	"WEBHOOK_TIMEOUT",
	"EDITOR_IDLE_TTL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "3001")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("WEBHOOK_TIMEOUT", "30s")
	v.SetDefault("EDITOR_IDLE_TTL", "2h")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine; the environment alone is enough.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	}

	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("STORE_URL is required")
	}
	if cfg.StoreAPIKey == "" {
		return nil, fmt.Errorf("STORE_API_KEY is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ENV=development, DevAuthMiddleware accepts unauthenticated requests.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsePostgres reports whether the store should be reached directly through
// a pgx pool instead of the hosted REST API.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is safe to run. Outside
// development an AUTH_JWT_SECRET is mandatory so access tokens are verified.
func (c *Config) Validate() error {
	if err := checkHTTPURL("STORE_URL", c.StoreURL); err != nil {
		return err
	}
	if !c.IsDev() && c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.ReportWebhookURL != "" {
		if err := checkHTTPURL("REPORT_WEBHOOK_URL", c.ReportWebhookURL); err != nil {
			return err
		}
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.WebhookTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive, got %s", c.WebhookTimeout)
	}
	return nil
}

func checkHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", key)
	}
	return nil
}
