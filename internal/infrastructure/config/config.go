package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`
	AppURL    string `env:"APP_URL,    default=http://localhost:3000"`

	// SuperAdminEmail is always promoted to SUPER_ADMIN on approval.
	SuperAdminEmail string `env:"SUPER_ADMIN_EMAIL, default=info.mptcommunity@gmail.com"`

	Auth        AuthConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	SMTP        SMTPConfig
	Maintenance MaintenanceConfig
}

type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET, required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,       default=168h"`
	CookieSecure bool          `env:"COOKIE_SECURE,   default=false"`
	RateLimit    float64       `env:"AUTH_RATE_LIMIT, default=5"`
	RateBurst    int           `env:"AUTH_RATE_BURST, default=10"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=mpt_warrior"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

// SMTPConfig leaves email delivery disabled while Host is empty.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,     default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM,     default=noreply@mptcommunity.id"`
	Workers  int    `env:"MAIL_WORKERS,  default=4"`
}

type MaintenanceConfig struct {
	StatsCacheTTL        time.Duration `env:"STATS_CACHE_TTL,       default=1h"`
	HousekeepingSchedule string        `env:"HOUSEKEEPING_SCHEDULE, default=@hourly"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through an arbitrary lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < 32 && c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateBurst <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive"))
	}
	if c.SMTP.Workers <= 0 {
		errs = append(errs, errors.New("MAIL_WORKERS must be positive"))
	}
	if c.Maintenance.StatsCacheTTL <= 0 {
		errs = append(errs, errors.New("STATS_CACHE_TTL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
