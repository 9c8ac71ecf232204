package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/caarlos0/env/v11"
)

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"

	CoordinationNone  = "none"
	CoordinationLocal = "local"
	CoordinationRedis = "redis"
)

var (
	ErrInvalidBaseURL      = errors.New("config: API_BASE_URL must be an absolute http(s) URL")
	ErrInvalidStore        = errors.New("config: TOKEN_STORE must be memory, file or redis")
	ErrInvalidCoordination = errors.New("config: REFRESH_COORDINATION must be none, local or redis")
	ErrMissingTokenFile    = errors.New("config: TOKEN_FILE is required for the file store")
	ErrInvalidCookieSite   = errors.New("config: COOKIE_SITE must be an absolute URL")
)

type Config struct {
	// Application
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`

	// Backend API
	APIBaseURL         string        `env:"API_BASE_URL"          envDefault:"http://localhost:8000/api"`
	APITimeout         time.Duration `env:"API_TIMEOUT"           envDefault:"30s"`
	APIMaxResponseSize int64         `env:"API_MAX_RESPONSE_SIZE" envDefault:"10485760"`
	APILoginPath       string        `env:"API_LOGIN_PATH"        envDefault:"/auth/login/"`
	APIRefreshPath     string        `env:"API_REFRESH_PATH"      envDefault:"/auth/token/refresh/"`
	SignInPath         string        `env:"SIGN_IN_PATH"          envDefault:"/"`

	// Token storage
	TokenStore    string        `env:"TOKEN_STORE"     envDefault:"file"`
	TokenFile     string        `env:"TOKEN_FILE"      envDefault:".ussdadmin/tokens.json"`
	TokenRedisKey string        `env:"TOKEN_REDIS_KEY" envDefault:"ussdadmin:tokens"`
	TokenRedisTTL time.Duration `env:"TOKEN_REDIS_TTL" envDefault:"0s"`
	CookieSite    string        `env:"COOKIE_SITE"     envDefault:""`
	CookieSecure  bool          `env:"COOKIE_SECURE"   envDefault:"true"`

	// Refresh coordination
	RefreshCoordination string        `env:"REFRESH_COORDINATION" envDefault:"none"`
	RefreshLockKey      string        `env:"REFRESH_LOCK_KEY"     envDefault:"ussdadmin:lock:token-refresh"`
	RefreshLockTTL      time.Duration `env:"REFRESH_LOCK_TTL"     envDefault:"10s"`

	// Notifications
	NotifyStreamEnabled    bool   `env:"NOTIFY_STREAM_ENABLED"     envDefault:"false"`
	NotifyStreamTopic      string `env:"NOTIFY_STREAM_TOPIC"       envDefault:"ussdadmin.notifications"`
	NotifyStreamMaxEntries int64  `env:"NOTIFY_STREAM_MAX_ENTRIES" envDefault:"1000"`

	// Redis
	RedisHost          string        `env:"REDIS_HOST"            envDefault:"localhost"`
	RedisPort          int           `env:"REDIS_PORT"            envDefault:"6379"`
	RedisPassword      string        `env:"REDIS_PASSWORD"        envDefault:""`
	RedisDB            int           `env:"REDIS_DB"              envDefault:"0"`
	RedisDialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT"    envDefault:"5s"`
	RedisReadTimeout   time.Duration `env:"REDIS_READ_TIMEOUT"    envDefault:"3s"`
	RedisWriteTimeout  time.Duration `env:"REDIS_WRITE_TIMEOUT"   envDefault:"3s"`
	RedisPoolSize      int           `env:"REDIS_POOL_SIZE"       envDefault:"10"`
	RedisMinIdleConns  int           `env:"REDIS_MIN_IDLE_CONNS"  envDefault:"2"`
	RedisMaxRetries    int           `env:"REDIS_MAX_RETRIES"     envDefault:"3"`
	RedisTLSEnabled    bool          `env:"REDIS_TLS_ENABLED"     envDefault:"false"`
	RedisTLSSkipVerify bool          `env:"REDIS_TLS_SKIP_VERIFY" envDefault:"false"`
	RedisTLSCAFile     string        `env:"REDIS_TLS_CA_FILE"     envDefault:""`
}

func New() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.APIBaseURL)
	}

	switch c.TokenStore {
	case StoreMemory, StoreRedis:
	case StoreFile:
		if c.TokenFile == "" {
			return ErrMissingTokenFile
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.TokenStore)
	}

	switch c.RefreshCoordination {
	case CoordinationNone, CoordinationLocal, CoordinationRedis:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCoordination, c.RefreshCoordination)
	}

	if c.CookieSite != "" {
		site, err := url.Parse(c.CookieSite)
		if err != nil || site.Scheme == "" || site.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidCookieSite, c.CookieSite)
		}
	}

	if c.NeedsRedis() {
		if err := c.Redis().Validate(); err != nil {
			return fmt.Errorf("config: redis: %w", err)
		}
	}

	return nil
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.TokenStore == StoreRedis ||
		c.RefreshCoordination == CoordinationRedis ||
		c.NotifyStreamEnabled
}

func (c *Config) Redis() *tokenstore.RedisConfig {
	return &tokenstore.RedisConfig{
		Host:          c.RedisHost,
		Port:          c.RedisPort,
		Password:      c.RedisPassword,
		DB:            c.RedisDB,
		DialTimeout:   c.RedisDialTimeout,
		ReadTimeout:   c.RedisReadTimeout,
		WriteTimeout:  c.RedisWriteTimeout,
		PoolSize:      c.RedisPoolSize,
		MinIdleConns:  c.RedisMinIdleConns,
		MaxRetries:    c.RedisMaxRetries,
		TLSEnabled:    c.RedisTLSEnabled,
		TLSSkipVerify: c.RedisTLSSkipVerify,
		TLSCAFile:     c.RedisTLSCAFile,
	}
}
