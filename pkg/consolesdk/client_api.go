package consolesdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ListCustomers fetches the customer records reachable by the current token.
func (c *Client) ListCustomers(ctx context.Context) ([]CustomerRecord, error) {
	var records []CustomerRecord
	if err := c.getJSON(ctx, "/customers", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CurrentUser fetches the authoritative user detail for the signed-in
// principal.
func (c *Client) CurrentUser(ctx context.Context) (*UserRecord, error) {
	var user UserRecord
	if err := c.getJSON(ctx, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// getJSON performs an authenticated GET through the API client and decodes
// the JSON response into target.
func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	if c.API == nil {
		return fmt.Errorf("consolesdk: API client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.API.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(
			"request %s failed with status %d: %s",
			path, resp.StatusCode, messageFromBody(resp.StatusCode, body),
		)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
