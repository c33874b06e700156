package consolesdk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/oklog/ulid/v2"
)

// TokenStore is the durable token state the Transport reads on every call
// and overwrites after a successful refresh. The Transport never caches a
// pair between requests; the store is the single source of truth.
type TokenStore interface {
	Tokens(ctx context.Context) (TokenPair, bool, error)
	SetTokens(ctx context.Context, pair TokenPair) error
	Clear(ctx context.Context) error
}

// Refresher performs the refresh-grant exchange. *Client implements it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken, activeCustomer string) (*TokenResponse, error)
}

// Transport is an http.RoundTripper that attaches the stored bearer token to
// outbound requests and, on a 401, performs exactly one refresh-and-retry
// cycle.
//
// The retry bound is the load-bearing invariant here: a caller never
// observes more than one transparent retry per logical request. The retried
// response is returned verbatim even if it is itself a 401, and a failed
// refresh always leaves the store cleared rather than holding stale tokens.
type Transport struct {
	// Base is the underlying round tripper. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper

	Store     TokenStore
	Refresher Refresher

	// ActiveCustomer, when set, supplies the customer id the refresh grant
	// should scope the new token to. May return "".
	ActiveCustomer func() string

	// OnSessionExpired is invoked after the store has been cleared because
	// refresh was exhausted or absent. The session manager uses it to force
	// the logged-out transition.
	OnSessionExpired func()

	Logger *slog.Logger

	// refreshMu serializes refreshes so concurrent 401s collapse into one
	// exchange; each waiter re-reads the store before refreshing again.
	refreshMu sync.Mutex
}

// NewTransport wires a Transport over the default base round tripper.
func NewTransport(store TokenStore, refresher Refresher) *Transport {
	return &Transport{Store: store, Refresher: refresher}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// RoundTrip implements http.RoundTripper. The request is never mutated; the
// authenticated attempt and the single retry are both issued from clones.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	reqID := ulid.Make().String()
	log := t.logger().With("req_id", reqID, "method", req.Method, "url", req.URL.String())

	pair, authed, err := t.currentPair(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := t.send(req, pair.AccessToken, reqID)
	if err != nil {
		return nil, err
	}

	// Anything but a 401 on an authenticated call is terminal, as is a 401
	// on a call that carried no credentials to begin with.
	if resp.StatusCode != http.StatusUnauthorized || !authed {
		return resp, nil
	}

	// A request whose body cannot be replayed cannot be retried; hand the
	// 401 back untouched.
	if req.Body != nil && req.GetBody == nil {
		log.Debug("401 response not retried: request body is not replayable")
		return resp, nil
	}

	drain(resp)

	fresh, err := t.refreshedPair(ctx, pair)
	if err != nil {
		log.Info("session expired", "error", err)
		return nil, err
	}

	log.Debug("retrying request after token refresh")

	retried, err := t.send(req, fresh.AccessToken, reqID)
	if err != nil {
		return nil, err
	}

	// Terminal regardless of status; a second 401 is the caller's problem.
	return retried, nil
}

// currentPair reads the stored pair. authed is false when the store is
// empty, meaning the request goes out without credentials and a 401 will be
// returned as-is.
func (t *Transport) currentPair(ctx context.Context) (pair TokenPair, authed bool, err error) {
	pair, ok, err := t.Store.Tokens(ctx)
	if err != nil {
		return TokenPair{}, false, fmt.Errorf("consolesdk: read token store: %w", err)
	}
	return pair, ok, nil
}

// refreshedPair runs the single refresh cycle for a request whose first
// attempt got a 401. Concurrent callers are serialized; whoever loses the
// race reuses the pair the winner stored instead of spending a second
// exchange.
func (t *Transport) refreshedPair(ctx context.Context, sent TokenPair) (TokenPair, error) {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	stored, ok, err := t.Store.Tokens(ctx)
	if err != nil {
		return TokenPair{}, fmt.Errorf("consolesdk: read token store: %w", err)
	}

	// Logged out while we were waiting; do not resurrect the session.
	if !ok {
		return TokenPair{}, t.expired("session cleared during request")
	}

	// Another request already rotated the pair.
	if stored.AccessToken != sent.AccessToken {
		return stored, nil
	}

	if stored.RefreshToken == "" {
		t.clearAndNotify(ctx)
		return TokenPair{}, t.expired("no refresh token available")
	}

	activeCustomer := ""
	if t.ActiveCustomer != nil {
		activeCustomer = t.ActiveCustomer()
	}

	tok, err := t.Refresher.Refresh(ctx, stored.RefreshToken, activeCustomer)
	if err != nil {
		t.clearAndNotify(ctx)
		return TokenPair{}, t.expired(fmt.Sprintf("refresh rejected: %v", err))
	}

	fresh := TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}

	// Guard against a logout that raced the exchange itself: a cleared
	// store stays cleared.
	if _, ok, err := t.Store.Tokens(ctx); err != nil || !ok {
		return TokenPair{}, t.expired("session cleared during refresh")
	}

	if err := t.Store.SetTokens(ctx, fresh); err != nil {
		return TokenPair{}, fmt.Errorf("consolesdk: store refreshed tokens: %w", err)
	}

	return fresh, nil
}

func (t *Transport) clearAndNotify(ctx context.Context) {
	if err := t.Store.Clear(ctx); err != nil {
		t.logger().Error("failed to clear token store", "error", err)
	}
	if t.OnSessionExpired != nil {
		t.OnSessionExpired()
	}
}

func (t *Transport) expired(msg string) *AuthError {
	return &AuthError{
		Kind:       KindSessionExpired,
		StatusCode: http.StatusUnauthorized,
		Message:    msg,
	}
}

// send issues one attempt from a clone of req so the caller's request is
// never mutated and the body can be replayed for the retry.
func (t *Transport) send(req *http.Request, accessToken, reqID string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("consolesdk: replay request body: %w", err)
		}
		clone.Body = body
	}

	if accessToken != "" {
		clone.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", "application/json")
	}
	clone.Header.Set("X-Request-Id", reqID)

	return t.base().RoundTrip(clone)
}

// drain consumes and closes a response body so the underlying connection can
// be reused for the retry.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
