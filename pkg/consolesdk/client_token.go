package consolesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// PasswordLogin performs the password-grant exchange. Non-2xx responses are
// mapped onto the AuthError taxonomy (401 invalid credentials, 400 bad
// request, 5xx server error) with the message pulled from the body's
// detail/message field when present.
//
// PasswordLogin performs no retries; it is safe for the caller to retry.
func (c *Client) PasswordLogin(ctx context.Context, email, password string) (*TokenResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data := url.Values{
		"grant_type":    {"password"},
		"username":      {email},
		"password":      {password},
		"scope":         {""},
		"client_id":     {"string"},
		"client_secret": {""},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.AuthBaseURL+"/auth/token",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, loginErrorFromResponse(resp.StatusCode, body)
	}

	return decodeTokenResponse(body)
}

// Refresh performs the refresh-grant exchange. activeCustomer scopes the new
// token to a customer tenant and may be empty. Any non-2xx response maps to
// a refresh failure; the caller decides what that does to the session.
//
// Refresh performs no retries; it is safe for the caller to retry.
func (c *Client) Refresh(ctx context.Context, refreshToken, activeCustomer string) (*TokenResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := struct {
		RefreshToken   string `json:"refresh_token"`
		ActiveCustomer string `json:"active_customer,omitempty"`
	}{
		RefreshToken:   refreshToken,
		ActiveCustomer: activeCustomer,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.AuthBaseURL+"/auth/refresh",
		bytes.NewReader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthError{
			Kind:       KindRefreshFailed,
			StatusCode: resp.StatusCode,
			Message:    messageFromBody(resp.StatusCode, body),
		}
	}

	return decodeTokenResponse(body)
}

func decodeTokenResponse(body []byte) (*TokenResponse, error) {
	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	// A pair is all-or-nothing; a response missing either half is unusable.
	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" {
		return nil, fmt.Errorf("token response missing access or refresh token")
	}

	return &tokenResp, nil
}
