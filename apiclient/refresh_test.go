package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andyle182810/ussdadmin/apiclient"
	"github.com/andyle182810/ussdadmin/testutil"
	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefresher(t *testing.T, backend *testutil.Backend) (*apiclient.Refresher, *tokenstore.Store) {
	t.Helper()

	store := tokenstore.New(tokenstore.NewMemoryKV())
	refresher := apiclient.NewRefresher(resty.New(), backend.URL()+testutil.RefreshPath, store)

	return refresher, store
}

func TestRefresher_StoresNewAccessAndKeepsRefresh(t *testing.T) {
	t.Parallel()

	backend := testutil.NewBackend(t)
	refresher, store := newRefresher(t, backend)

	access, refresh := backend.IssuePair()
	store.SetTokens(t.Context(), tokenstore.Pair{Access: access, Refresh: refresh})

	newAccess, err := refresher.Refresh(t.Context())

	require.NoError(t, err)
	require.NotEqual(t, access, newAccess)
	require.True(t, backend.ValidAccess(newAccess))

	stored, ok := store.AccessToken(t.Context())
	require.True(t, ok)
	require.Equal(t, newAccess, stored)

	storedRefresh, ok := store.RefreshToken(t.Context())
	require.True(t, ok)
	require.Equal(t, refresh, storedRefresh)
}

func TestRefresher_SendsRefreshTokenAsJSON(t *testing.T) {
	t.Parallel()

	backend := testutil.NewBackend(t)
	store := tokenstore.New(nil)
	store.SetTokens(t.Context(), tokenstore.Pair{Access: "old", Refresh: "refresh-token"})

	backend.HandleOpen("POST /custom/refresh/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"refresh": "refresh-token"}, body)

		testutil.WriteJSON(w, http.StatusOK, map[string]string{"access": "fresh"})
	})

	refresher := apiclient.NewRefresher(resty.New().SetHeader("Content-Type", "application/json"),
		backend.URL()+"/custom/refresh/", store)

	access, err := refresher.Refresh(t.Context())

	require.NoError(t, err)
	require.Equal(t, "fresh", access)
}

func TestRefresher_NoRefreshTokenMakesNoCall(t *testing.T) {
	t.Parallel()

	backend := testutil.NewBackend(t)
	refresher, _ := newRefresher(t, backend)

	_, err := refresher.Refresh(t.Context())

	require.ErrorIs(t, err, apiclient.ErrNoRefreshToken)
	require.Zero(t, backend.RefreshCalls.Load())
}

func TestRefresher_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		status   int
		body     any
		expected error
	}{
		{
			name:     "rejected refresh token",
			status:   http.StatusUnauthorized,
			body:     map[string]string{"detail": "Token is invalid or expired"},
			expected: apiclient.ErrRefreshRejected,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     map[string]string{"detail": "boom"},
			expected: apiclient.ErrRefreshRejected,
		},
		{
			name:     "missing access field",
			status:   http.StatusOK,
			body:     map[string]string{"refresh": "x"},
			expected: apiclient.ErrNoAccessToken,
		},
		{
			name:     "empty access field",
			status:   http.StatusOK,
			body:     map[string]string{"access": ""},
			expected: apiclient.ErrNoAccessToken,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			backend := testutil.NewBackend(t)
			refresher, store := newRefresher(t, backend)
			store.SetTokens(t.Context(), tokenstore.Pair{Access: "old", Refresh: "some-refresh"})
			backend.FailRefresh(test.status, test.body)

			_, err := refresher.Refresh(t.Context())

			require.ErrorIs(t, err, test.expected)

			access, ok := store.AccessToken(t.Context())
			require.True(t, ok)
			require.Equal(t, "old", access)
		})
	}
}

func TestRefresher_TransportFailure(t *testing.T) {
	t.Parallel()

	store := tokenstore.New(nil)
	store.SetTokens(t.Context(), tokenstore.Pair{Access: "old", Refresh: "some-refresh"})

	refresher := apiclient.NewRefresher(resty.New(), "http://127.0.0.1:1/auth/token/refresh/", store)

	_, err := refresher.Refresh(t.Context())

	require.ErrorIs(t, err, apiclient.ErrRefreshRequest)
}

func TestSingleFlight_SharesConcurrentRefreshes(t *testing.T) {
	t.Parallel()

	coordinator := apiclient.NewSingleFlight()

	var calls atomic.Int32

	refresh := func(_ context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)

		return "shared-token", nil
	}

	const workers = 10

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)

	tokens := make([]string, workers)

	for idx := range workers {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			<-start

			token, err := coordinator.Coordinate(t.Context(), "stale", refresh)
			assert.NoError(t, err)

			tokens[idx] = token
		}(idx)
	}

	close(start)
	wg.Wait()

	require.LessOrEqual(t, calls.Load(), int32(2))

	for _, token := range tokens {
		require.Equal(t, "shared-token", token)
	}
}

func TestSingleFlight_PropagatesError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	coordinator := apiclient.NewSingleFlight()

	_, err := coordinator.Coordinate(t.Context(), "stale", func(_ context.Context) (string, error) {
		return "", errBoom
	})

	require.ErrorIs(t, err, errBoom)
}

func TestRefresher_DecodesJSONServedAsHTML(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"access":"new-access"}`))
	}))
	t.Cleanup(server.Close)

	store := tokenstore.New(tokenstore.NewMemoryKV())
	store.SetTokens(t.Context(), tokenstore.Pair{Access: "old", Refresh: "refresh-token"})

	refresher := apiclient.NewRefresher(resty.New(), server.URL, store)

	token, err := refresher.Refresh(t.Context())

	require.NoError(t, err)
	require.Equal(t, "new-access", token)

	stored, ok := store.AccessToken(t.Context())
	require.True(t, ok)
	require.Equal(t, "new-access", stored)
}

func TestClient_RetriesWhenRefreshAnswersWithoutJSONContentType(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, apiclient.WithRefreshPath("/auth/html-refresh/"))
	pair := fx.signIn(t)

	fx.backend.HandleOpen("POST /auth/html-refresh/", func(w http.ResponseWriter, _ *http.Request) {
		access, _ := fx.backend.IssuePair()

		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"access":"` + access + `"}`))
	})
	fx.backend.Handle("GET /networks/", func(w http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	fx.backend.RevokeAccess(pair.Access)

	res, err := fx.client.Get(t.Context(), "/networks/")

	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(res.Payload))
	require.Empty(t, fx.nav.Targets())

	refresh, ok := fx.store.RefreshToken(t.Context())
	require.True(t, ok)
	require.Equal(t, pair.Refresh, refresh)
}

func TestSingleFlight_CancelledLeaderDoesNotFailRefresh(t *testing.T) {
	t.Parallel()

	coordinator := apiclient.NewSingleFlight()

	started := make(chan struct{}, 1)
	release := make(chan struct{})

	refresh := func(ctx context.Context) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}

		<-release

		if err := ctx.Err(); err != nil {
			return "", err
		}

		return "shared-token", nil
	}

	leaderCtx, cancel := context.WithCancel(t.Context())

	type outcome struct {
		token string
		err   error
	}

	leader := make(chan outcome, 1)

	go func() {
		token, err := coordinator.Coordinate(leaderCtx, "stale", refresh)
		leader <- outcome{token: token, err: err}
	}()

	<-started

	follower := make(chan outcome, 1)

	go func() {
		token, err := coordinator.Coordinate(t.Context(), "stale", refresh)
		follower <- outcome{token: token, err: err}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	close(release)

	got := <-leader
	require.NoError(t, got.err)
	require.Equal(t, "shared-token", got.token)

	got = <-follower
	require.NoError(t, got.err)
	require.Equal(t, "shared-token", got.token)
}
