package apiclient

import (
	"context"
	"fmt"

	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// Refresher exchanges the stored refresh token for a new access token.
// It never clears credentials; deciding what a failure means is up to the
// caller.
type Refresher struct {
	restyClient *resty.Client
	url         string
	store       TokenStore
}

func NewRefresher(restyClient *resty.Client, refreshURL string, store TokenStore) *Refresher {
	return &Refresher{
		restyClient: restyClient,
		url:         refreshURL,
		store:       store,
	}
}

func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	refreshToken, ok := r.store.RefreshToken(ctx)
	if !ok {
		return "", ErrNoRefreshToken
	}

	var result refreshResponse

	resp, err := r.restyClient.R().
		SetContext(ctx).
		SetBody(refreshRequest{Refresh: refreshToken}).
		SetResult(&result).
		ForceContentType(ContentTypeJSON).
		Post(r.url)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshRequest, err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: status %d", ErrRefreshRejected, resp.StatusCode())
	}

	if result.Access == "" {
		return "", ErrNoAccessToken
	}

	r.store.SetTokens(ctx, tokenstore.Pair{Access: result.Access, Refresh: refreshToken})

	log.Info().Msg("Access token refreshed")

	return result.Access, nil
}

type RefreshFunc func(ctx context.Context) (string, error)

// RefreshCoordinator decides how concurrent refreshes share work. staleToken
// is the access token the backend just rejected.
type RefreshCoordinator interface {
	Coordinate(ctx context.Context, staleToken string, refresh RefreshFunc) (string, error)
}

const singleFlightKey = "refresh"

// SingleFlight lets one in-process refresh run at a time; callers arriving
// while it is in flight share its result.
type SingleFlight struct {
	group singleflight.Group
}

var _ RefreshCoordinator = (*SingleFlight)(nil)

func NewSingleFlight() *SingleFlight {
	return &SingleFlight{group: singleflight.Group{}}
}

func (s *SingleFlight) Coordinate(ctx context.Context, _ string, refresh RefreshFunc) (string, error) {
	// Joined callers share this refresh, so the first caller's cancellation
	// must not fail it for everyone.
	value, err, shared := s.group.Do(singleFlightKey, func() (any, error) {
		return refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}

	if shared {
		log.Debug().Msg("Joined an in-flight token refresh")
	}

	token, _ := value.(string)

	return token, nil
}
