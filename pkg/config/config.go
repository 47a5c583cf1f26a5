// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration for the backoffice service.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OIDC     OIDCConfig
	Policy   PolicyConfig
	Notify   NotifyConfig
}

type AppConfig struct {
	Name    string
	Env     string
	Version string
}

type ServerConfig struct {
	Port int
	// SelfHostnames are Host header values that indicate the service is
	// calling itself; tenant resolution is bypassed for those requests.
	SelfHostnames []string
	// BaseDomain is the apex domain used for legacy subdomain tenant slugs
	// (e.g. "acme" in acme.backoffice.vendala.com).
	BaseDomain string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Address() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// OIDCConfig configures verification of tokens issued by the external
// identity provider.
type OIDCConfig struct {
	// JWKSURL is the provider's key-discovery endpoint.
	JWKSURL string

	// IssuerAllowList holds every issuer URL the provider is reachable as:
	// public, internal, and historical aliases all validate.
	IssuerAllowList []string

	// ClientID is the expected audience / authorized party / client_id.
	ClientID string

	// SuperAdminEmail is the bootstrap escape hatch: a principal with no
	// recognizable role but exactly this email is treated as super admin.
	SuperAdminEmail string

	// KeyTTL bounds how long a cached signing key is trusted.
	KeyTTL time.Duration

	// FetchTimeout bounds a single key-discovery request.
	FetchTimeout time.Duration

	// ReachabilityTimeout bounds the startup provider reachability check.
	ReachabilityTimeout time.Duration

	// FetchPerMinute caps key-discovery requests to the provider.
	FetchPerMinute int

	// BootstrapMaxAttempts is how many times the startup key fetch is
	// retried (exponential backoff) before the service degrades.
	BootstrapMaxAttempts int

	// BootstrapBaseDelay is the initial backoff delay.
	BootstrapBaseDelay time.Duration
}

// PolicyConfig configures the permission-matrix snapshot cache.
type PolicyConfig struct {
	// InvalidationChannel is the redis pub/sub channel peers use to
	// broadcast administrative policy changes.
	InvalidationChannel string

	// RefreshInterval is the fallback periodic snapshot refresh.
	RefreshInterval time.Duration
}

type NotifyConfig struct {
	Provider    string // "console" or "ses"
	FromAddress string
	AlertsTo    []string
	AWSRegion   string
}

// Load builds the full configuration from the environment.
func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "vendala-backoffice"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "0.1.0"),
		},
		Server: ServerConfig{
			Port:          getEnvInt("SERVER_PORT", 8080),
			SelfHostnames: getEnvStringSlice("SERVER_SELF_HOSTNAMES", []string{"localhost", "127.0.0.1"}),
			BaseDomain:    getEnv("SERVER_BASE_DOMAIN", "backoffice.vendala.com"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "backoffice"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "backoffice"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		OIDC: OIDCConfig{
			JWKSURL:              getEnv("OIDC_JWKS_URL", ""),
			IssuerAllowList:      getEnvStringSlice("OIDC_ISSUER_ALLOW_LIST", nil),
			ClientID:             getEnv("OIDC_CLIENT_ID", ""),
			SuperAdminEmail:      getEnv("OIDC_SUPER_ADMIN_EMAIL", ""),
			KeyTTL:               getEnvDuration("OIDC_KEY_TTL", 24*time.Hour),
			FetchTimeout:         getEnvDuration("OIDC_FETCH_TIMEOUT", 30*time.Second),
			ReachabilityTimeout:  getEnvDuration("OIDC_REACHABILITY_TIMEOUT", 15*time.Second),
			FetchPerMinute:       getEnvInt("OIDC_FETCH_PER_MINUTE", 10),
			BootstrapMaxAttempts: getEnvInt("OIDC_BOOTSTRAP_MAX_ATTEMPTS", 5),
			BootstrapBaseDelay:   getEnvDuration("OIDC_BOOTSTRAP_BASE_DELAY", time.Second),
		},
		Policy: PolicyConfig{
			InvalidationChannel: getEnv("POLICY_INVALIDATION_CHANNEL", "backoffice:policy:invalidate"),
			RefreshInterval:     getEnvDuration("POLICY_REFRESH_INTERVAL", 5*time.Minute),
		},
		Notify: NotifyConfig{
			Provider:    getEnv("NOTIFY_PROVIDER", "console"),
			FromAddress: getEnv("NOTIFY_FROM_ADDRESS", "ops@vendala.com"),
			AlertsTo:    getEnvStringSlice("NOTIFY_ALERTS_TO", nil),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
