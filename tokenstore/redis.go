package tokenstore

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisHashKey = "ussdadmin:tokens"
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultPoolSize     = 10
	defaultMinIdleConns = 1
	defaultMaxRetries   = 3
	maxPort             = 65535
)

var (
	ErrRedisGet       = errors.New("tokenstore: redis get failed")
	ErrRedisSet       = errors.New("tokenstore: redis set failed")
	ErrRedisDelete    = errors.New("tokenstore: redis delete failed")
	ErrInvalidHost    = errors.New("tokenstore: redis host is required")
	ErrInvalidPort    = errors.New("tokenstore: redis port must be between 1 and 65535")
	ErrInvalidDB      = errors.New("tokenstore: redis database number must be non-negative")
	ErrConfigNil      = errors.New("tokenstore: redis configuration must not be nil")
	ErrCAParseFailure = errors.New("tokenstore: failed to parse CA certificate")
)

// RedisKV stores all values as fields of one redis hash so that a
// multi-field HSET writes the credential pair in a single command.
type RedisKV struct {
	client  redis.UniversalClient
	hashKey string
	ttl     time.Duration
}

var _ KV = (*RedisKV)(nil)

// NewRedisKV returns a KV on hashKey. A zero ttl keeps the hash until it is
// cleared; otherwise every write pushes its expiry out by ttl.
func NewRedisKV(client redis.UniversalClient, hashKey string, ttl time.Duration) *RedisKV {
	if hashKey == "" {
		hashKey = defaultRedisHashKey
	}

	return &RedisKV{
		client:  client,
		hashKey: hashKey,
		ttl:     ttl,
	}
}

func (r *RedisKV) HashKey() string {
	return r.hashKey
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.HGet(ctx, r.hashKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%w: %w", ErrRedisGet, err)
	}

	return value, true, nil
}

func (r *RedisKV) SetAll(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.hashKey, values)

		if r.ttl > 0 {
			pipe.Expire(ctx, r.hashKey, r.ttl)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRedisSet, err)
	}

	return nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.HDel(ctx, r.hashKey, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisDelete, err)
	}

	return nil
}

type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PoolSize      int
	MinIdleConns  int
	MaxRetries    int
	TLSEnabled    bool
	TLSSkipVerify bool
	TLSCAFile     string
}

func (cfg *RedisConfig) Validate() error {
	if cfg.Host == "" {
		return ErrInvalidHost
	}

	if cfg.Port < 1 || cfg.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}

	if cfg.DB < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDB, cfg.DB)
	}

	return nil
}

func (cfg *RedisConfig) WithDefaults() *RedisConfig {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaultPoolSize
	}

	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaultMinIdleConns
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	return cfg
}

func NewRedisClient(cfg *RedisConfig) (*redis.Client, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	//nolint:exhaustruct
	opt := &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
	}

	if cfg.TLSEnabled {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config: %w", err)
		}

		opt.TLSConfig = tlsConfig
	}

	return redis.NewClient(opt), nil
}

//nolint:gosec,exhaustruct
func buildTLSConfig(cfg *RedisConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	if cfg.TLSCAFile == "" {
		return tlsConfig, nil
	}

	caCert, err := os.ReadFile(cfg.TLSCAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, ErrCAParseFailure
	}

	tlsConfig.RootCAs = pool

	return tlsConfig, nil
}
