package tokenstore

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyRememberMe   = "rememberMe"

	rememberValue = "1"
)

type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Store is the process-wide holder of the credential pair. The access token
// is mirrored into a cookie when a CookieJar is configured; the refresh token
// only ever lives in the KV backend.
//
// Backend failures are logged and never returned: reads report the value as
// absent and writes are dropped.
type Store struct {
	kv      KV
	cookies *CookieJar

	// serializes writes so the KV and the cookie never disagree
	mu sync.Mutex
}

type Option func(*Store)

func WithCookieJar(cookies *CookieJar) Option {
	return func(s *Store) {
		s.cookies = cookies
	}
}

func New(kv KV, opts ...Option) *Store {
	if kv == nil {
		kv = NewMemoryKV()
	}

	store := &Store{
		kv:      kv,
		cookies: nil,
		mu:      sync.Mutex{},
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	if token, ok := s.get(ctx, KeyAccessToken); ok {
		return token, true
	}

	if s.cookies != nil {
		return s.cookies.AccessToken()
	}

	return "", false
}

func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyRefreshToken)
}

func (s *Store) SetTokens(ctx context.Context, pair Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.SetAll(ctx, map[string]string{
		KeyAccessToken:  pair.Access,
		KeyRefreshToken: pair.Refresh,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist credential pair")

		return
	}

	if s.cookies != nil {
		s.cookies.SetAccessToken(pair.Access, s.remembered(ctx))
	}
}

func (s *Store) ClearTokens(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyRememberMe); err != nil {
		log.Error().Err(err).Msg("Failed to clear credential pair")
	}

	if s.cookies != nil {
		s.cookies.Expire()
	}
}

// SetRemember records the remember-me choice made at sign-in. It decides the
// lifetime of every accessToken cookie written afterwards.
func (s *Store) SetRemember(ctx context.Context, remember bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if remember {
		err = s.kv.SetAll(ctx, map[string]string{KeyRememberMe: rememberValue})
	} else {
		err = s.kv.Delete(ctx, KeyRememberMe)
	}

	if err != nil {
		log.Error().Err(err).Bool("remember", remember).Msg("Failed to persist remember-me flag")
	}
}

func (s *Store) Remembered(ctx context.Context) bool {
	return s.remembered(ctx)
}

func (s *Store) remembered(ctx context.Context) bool {
	value, ok := s.get(ctx, KeyRememberMe)

	return ok && value == rememberValue
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to read token store")

		return "", false
	}

	if !ok || value == "" {
		return "", false
	}

	return value, true
}
