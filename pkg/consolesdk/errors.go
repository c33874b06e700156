package consolesdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies auth failures by what the caller should do about them.
type ErrorKind string

const (
	// KindInvalidCredentials is a bad login; user-correctable, shown inline.
	KindInvalidCredentials ErrorKind = "invalid_credentials"

	// KindBadRequest is a malformed login payload.
	KindBadRequest ErrorKind = "bad_request"

	// KindServerError is a 5xx from the auth endpoint.
	KindServerError ErrorKind = "server_error"

	// KindRefreshFailed is a rejected refresh-grant exchange.
	KindRefreshFailed ErrorKind = "refresh_failed"

	// KindSessionExpired means refresh is exhausted or no refresh token
	// exists. It is the only kind that forces a transition to logged-out
	// from inside the request path.
	KindSessionExpired ErrorKind = "session_expired"
)

// AuthError is a typed failure from the credential exchange or the
// authenticating transport.
type AuthError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is an AuthError of the given kind, unwrapping
// as needed (http.Client wraps transport errors in *url.Error).
func IsKind(err error, kind ErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsSessionExpired reports whether err means the session is gone and the
// user must sign in again.
func IsSessionExpired(err error) bool { return IsKind(err, KindSessionExpired) }

// IsInvalidCredentials reports whether err is a user-correctable bad login.
func IsInvalidCredentials(err error) bool { return IsKind(err, KindInvalidCredentials) }

// loginErrorFromResponse maps a non-2xx login response onto the error
// taxonomy: 401 is invalid credentials, 400 a malformed payload, and 5xx a
// server fault. Anything else is reported as a bad request with its status.
func loginErrorFromResponse(statusCode int, body []byte) *AuthError {
	kind := KindBadRequest
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = KindInvalidCredentials
	case statusCode >= http.StatusInternalServerError:
		kind = KindServerError
	}

	return &AuthError{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    messageFromBody(statusCode, body),
	}
}

// messageFromBody extracts a human-readable message from the response body's
// detail/message field, falling back to the HTTP status text.
func messageFromBody(statusCode int, body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return http.StatusText(statusCode)
}
