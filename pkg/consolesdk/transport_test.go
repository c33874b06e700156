package consolesdk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory TokenStore for transport tests.
type memStore struct {
	mu   sync.Mutex
	pair TokenPair
	set  bool
}

func newMemStore(pair TokenPair) *memStore {
	return &memStore{pair: pair, set: true}
}

func (s *memStore) Tokens(ctx context.Context) (TokenPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, s.set, nil
}

func (s *memStore) SetTokens(ctx context.Context, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.set = true
	return nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	s.set = false
	return nil
}

// fakeRefresher scripts the refresh exchange.
type fakeRefresher struct {
	mu     sync.Mutex
	calls  int
	next   *TokenResponse
	err    error
	onCall func()
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken, activeCustomer string) (*TokenResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.next, nil
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTransportAttachesBearer(t *testing.T) {
	t.Parallel()

	var gotAuth, gotAccept, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotReqID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newMemStore(TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"})
	hc := &http.Client{Transport: NewTransport(store, &fakeRefresher{})}

	resp, err := hc.Get(srv.URL + "/customers")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "Bearer access-1", gotAuth)
	require.Equal(t, "application/json", gotAccept)
	require.NotEmpty(t, gotReqID)
}

func TestTransportRetryOnce(t *testing.T) {
	t.Parallel()

	t.Run("401 then success after refresh", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var tokensSeen []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			mu.Lock()
			tokensSeen = append(tokensSeen, token)
			attempt := len(tokensSeen)
			mu.Unlock()

			if attempt == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"ok":true}`)
		}))
		defer srv.Close()

		store := newMemStore(TokenPair{AccessToken: "stale", RefreshToken: "refresh-1"})
		refresher := &fakeRefresher{next: &TokenResponse{AccessToken: "fresh", RefreshToken: "refresh-2"}}
		hc := &http.Client{Transport: NewTransport(store, refresher)}

		resp, err := hc.Get(srv.URL + "/customers")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// Exactly two attempts: stale token, then the refreshed one.
		require.Equal(t, []string{"stale", "fresh"}, tokensSeen)
		require.Equal(t, 1, refresher.callCount())

		// The store holds the rotated pair.
		pair, ok, err := store.Tokens(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, TokenPair{AccessToken: "fresh", RefreshToken: "refresh-2"}, pair)
	})

	t.Run("second 401 is returned verbatim, not retried again", func(t *testing.T) {
		t.Parallel()

		var attempts int
		var mu sync.Mutex
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			attempts++
			mu.Unlock()
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		store := newMemStore(TokenPair{AccessToken: "stale", RefreshToken: "refresh-1"})
		refresher := &fakeRefresher{next: &TokenResponse{AccessToken: "fresh", RefreshToken: "refresh-2"}}
		hc := &http.Client{Transport: NewTransport(store, refresher)}

		resp, err := hc.Get(srv.URL + "/customers")
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, 2, attempts)
		require.Equal(t, 1, refresher.callCount())
	})

	t.Run("refresh failure clears the store and expires the session", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		store := newMemStore(TokenPair{AccessToken: "stale", RefreshToken: "refresh-1"})
		refresher := &fakeRefresher{err: &AuthError{Kind: KindRefreshFailed, StatusCode: 401}}

		expired := false
		tr := NewTransport(store, refresher)
		tr.OnSessionExpired = func() { expired = true }
		hc := &http.Client{Transport: tr}

		_, err := hc.Get(srv.URL + "/customers")
		require.Error(t, err)
		require.True(t, IsSessionExpired(err))
		require.True(t, expired)

		// Clean failure: no partial token state left behind.
		_, ok, err := store.Tokens(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("no stored pair means no retry", func(t *testing.T) {
		t.Parallel()

		var attempts int
		var mu sync.Mutex
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			attempts++
			mu.Unlock()
			require.Empty(t, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		store := &memStore{} // empty, logged out
		refresher := &fakeRefresher{}
		hc := &http.Client{Transport: NewTransport(store, refresher)}

		resp, err := hc.Get(srv.URL + "/customers")
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, 1, attempts)
		require.Zero(t, refresher.callCount())
	})

	t.Run("logout during refresh does not resurrect the session", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		store := newMemStore(TokenPair{AccessToken: "stale", RefreshToken: "refresh-1"})
		refresher := &fakeRefresher{next: &TokenResponse{AccessToken: "fresh", RefreshToken: "refresh-2"}}
		// Simulate a logout racing the refresh exchange.
		refresher.onCall = func() { _ = store.Clear(context.Background()) }

		hc := &http.Client{Transport: NewTransport(store, refresher)}

		_, err := hc.Get(srv.URL + "/customers")
		require.Error(t, err)
		require.True(t, IsSessionExpired(err))

		// The cleared store stays cleared.
		_, ok, err := store.Tokens(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestTransportPassthrough(t *testing.T) {
	t.Parallel()

	t.Run("non-401 responses are untouched", func(t *testing.T) {
		t.Parallel()

		for _, status := range []int{200, 204, 403, 404, 500} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))

			store := newMemStore(TokenPair{AccessToken: "access", RefreshToken: "refresh"})
			refresher := &fakeRefresher{}
			hc := &http.Client{Transport: NewTransport(store, refresher)}

			resp, err := hc.Get(srv.URL + "/reports")
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, status, resp.StatusCode)
			require.Zero(t, refresher.callCount())

			srv.Close()
		}
	})

	t.Run("replayed POST body reaches the retry", func(t *testing.T) {
		t.Parallel()

		var bodies []string
		var mu sync.Mutex
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, 64)
			n, _ := r.Body.Read(buf)
			mu.Lock()
			bodies = append(bodies, string(buf[:n]))
			attempt := len(bodies)
			mu.Unlock()

			if attempt == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		store := newMemStore(TokenPair{AccessToken: "stale", RefreshToken: "refresh-1"})
		refresher := &fakeRefresher{next: &TokenResponse{AccessToken: "fresh", RefreshToken: "refresh-2"}}
		hc := &http.Client{Transport: NewTransport(store, refresher)}

		resp, err := hc.Post(srv.URL+"/notes", "application/json", strings.NewReader(`{"a":1}`))
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.Equal(t, []string{`{"a":1}`, `{"a":1}`}, bodies)
	})
}
