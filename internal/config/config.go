package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/propertyhub-backend/pkg/utils"
)

const (
	ProviderSupabase = "supabase"
	ProviderMemory   = "memory"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"3001"`
	Environment string `env:"ENV"` // falls back to NODE_ENV, then "development"
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:4321"`
	// CORS: from ALLOWED_ORIGINS, else FRONTEND_URL
	AllowedOrigins []string
	RawOrigins     string `env:"ALLOWED_ORIGINS"`
	// honor X-Forwarded-For / X-Real-IP; only behind a proxy that overwrites them
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	Provider          string        `env:"PROVIDER" envDefault:"supabase"`
	SupabaseURL       string        `env:"SUPABASE_URL"`
	SupabaseAnonKey   string        `env:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string        `env:"SUPABASE_JWT_SECRET"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	RecaptchaSecret    string        `env:"RECAPTCHA_SECRET_KEY"`
	RecaptchaVerifyURL string        `env:"RECAPTCHA_VERIFY_URL" envDefault:"https://www.google.com/recaptcha/api/siteverify"`
	RecaptchaTimeout   time.Duration `env:"RECAPTCHA_TIMEOUT" envDefault:"10s"`

	PostgresURI string `env:"POSTGRES_URI"`

	RedisURI       string        `env:"REDIS_URI"`
	TokenCacheTTL  time.Duration `env:"TOKEN_CACHE_TTL" envDefault:"60s"`
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"25"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"120s"`

	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"propertyhub"`
	// base64, 32 bytes; encrypts emails in the audit trail
	AuditEncryptionKey string `env:"AUDIT_ENCRYPTION_KEY"`

	CloudinaryName      string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFromMap parses config from an explicit environment; used by tests.
func LoadFromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	if cfg.Environment == "" {
		cfg.Environment = lookup(opts, "NODE_ENV")
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")
	cfg.AllowedOrigins = parseOrigins(cfg.RawOrigins)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{cfg.FrontendURL}
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	return cfg, nil
}

func lookup(opts env.Options, key string) string {
	if opts.Environment != nil {
		return opts.Environment[key]
	}
	return os.Getenv(key)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" && !containsOrigin(out, part) {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when the environment is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PasswordResetRedirect is where the provider's reset email points.
func (c *Config) PasswordResetRedirect() string {
	return c.FrontendURL + "/reset-password"
}

// CloudinaryConfigured reports whether all upload credentials are present.
func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.AuditEncryptionKey != "" {
		if _, err := utils.ParseKey(c.AuditEncryptionKey); err != nil {
			return fmt.Errorf("AUDIT_ENCRYPTION_KEY: %w", err)
		}
	}
	switch c.Provider {
	case ProviderMemory:
		// memory tokens are opaque uuids; local JWT checks would reject all of them
		if c.SupabaseJWTSecret != "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET must be empty when PROVIDER=%s", ProviderMemory)
		}
		return nil
	case ProviderSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required when PROVIDER=%s", ProviderSupabase)
		}
		return nil
	default:
		return fmt.Errorf("unknown PROVIDER %q (want %s or %s)", c.Provider, ProviderSupabase, ProviderMemory)
	}
}

// AuditCipher returns nil when no audit encryption key is configured.
func (c *Config) AuditCipher() (*utils.Cipher, error) {
	if c.AuditEncryptionKey == "" {
		return nil, nil
	}
	key, err := utils.ParseKey(c.AuditEncryptionKey)
	if err != nil {
		return nil, err
	}
	return utils.NewCipher(key)
}
