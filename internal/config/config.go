package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Env           string `envconfig:"APP_ENV" default:"development"`
	Port          string `envconfig:"PORT" default:"8080"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`

	SecretKey          string        `envconfig:"APP_SECRET_KEY"`
	JWTIssuer          string        `envconfig:"JWT_ISSUER" default:"cabinet-backend"`
	TokenTTL           time.Duration `envconfig:"TOKEN_EXPIRATION" default:"24h"`
	RememberMeTTL      time.Duration `envconfig:"TOKEN_REMEMBER_ME_EXPIRATION" default:"720h"`
	ResetPasswordTTL   time.Duration `envconfig:"TOKEN_RESET_PASSWORD_EXPIRATION" default:"15m"`
	GuardRBACMutations bool          `envconfig:"RBAC_GUARD_MUTATIONS" default:"false"`

	CORSOrigins    []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	LoginRateLimit int           `envconfig:"LOGIN_RATE_LIMIT_PER_MIN" default:"20"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr         string `envconfig:"REDIS_ADDR"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@cabinet.local"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`

	ResetPasswordURL string `envconfig:"RESET_PASSWORD_URL" default:"http://localhost:4200/reset-password"`

	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadWorker reads configuration for the mail worker, which needs Redis but
// neither the database nor the signing key.
func LoadWorker() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.normalize()
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return Config{}, errors.New("REDIS_ADDR is required")
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.CORSOrigins = origins
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of postgres, memory", c.StorageDriver))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("APP_SECRET_KEY is required"))
	} else if _, err := base64.StdEncoding.DecodeString(c.SecretKey); err != nil {
		errs = append(errs, errors.New("APP_SECRET_KEY must be base64 encoded"))
	}
	if c.TokenTTL <= 0 || c.RememberMeTTL <= 0 || c.ResetPasswordTTL <= 0 {
		errs = append(errs, errors.New("token expirations must be positive"))
	}
	if c.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT_PER_MIN must be positive"))
	}
	if (c.SeedAdminEmail == "") != (c.SeedAdminPassword == "") {
		errs = append(errs, errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SMTPEnabled reports whether an SMTP relay is configured.
func (c Config) SMTPEnabled() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}
