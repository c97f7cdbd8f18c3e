package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Users     UsersConfig     `mapstructure:"users"`
	Tenant    TenantConfig    `mapstructure:"tenant"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// IdentityConfig selects the identity provider. Provider "local" keeps
// identities in the store; "gotrue" talks to the hosted auth service.
type IdentityConfig struct {
	Provider   string        `mapstructure:"provider"`
	URL        string        `mapstructure:"url"`
	AnonKey    string        `mapstructure:"anon_key"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type UsersConfig struct {
	DefaultPassword       string `mapstructure:"default_password"`
	MinPasswordLength     int    `mapstructure:"min_password_length"`
	ProtectedAccountEmail string `mapstructure:"protected_account_email"`
	ProtectedAccountID    string `mapstructure:"protected_account_id"`
}

type TenantConfig struct {
	CookieName          string        `mapstructure:"cookie_name"`
	ActiveCompanyCookie string        `mapstructure:"active_company_cookie"`
	SlugCacheTTL        time.Duration `mapstructure:"slug_cache_ttl"`
}

type RateLimitConfig struct {
	ReadPerMinute  int `mapstructure:"read_per_minute"`
	WritePerMinute int `mapstructure:"write_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type WorkerConfig struct {
	OrphanSweepSchedule string        `mapstructure:"orphan_sweep_schedule"`
	OrphanGracePeriod   time.Duration `mapstructure:"orphan_grace_period"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "file:./data/adminhub.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("identity.provider", "local")
	v.SetDefault("identity.timeout", 10*time.Second)

	v.SetDefault("jwt.issuer", "adminhub")
	v.SetDefault("jwt.access_token_ttl", time.Hour)

	v.SetDefault("users.default_password", "CambiaTuClave")
	v.SetDefault("users.min_password_length", 6)

	v.SetDefault("tenant.cookie_name", "tenant-slug")
	v.SetDefault("tenant.active_company_cookie", "active-company")
	v.SetDefault("tenant.slug_cache_ttl", 30*time.Second)

	v.SetDefault("rate_limit.read_per_minute", 1000)
	v.SetDefault("rate_limit.write_per_minute", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("worker.orphan_sweep_schedule", "@every 15m")
	v.SetDefault("worker.orphan_grace_period", 10*time.Minute)
}

// Load reads the config file at path and overlays environment variables,
// e.g. IDENTITY_SERVICE_KEY overrides identity.service_key. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
