package consolesdk

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is the token endpoint response, returned by both the
// password and refresh grants.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque refresh token used to obtain new access tokens
	RefreshToken string `json:"refresh_token"`

	// TokenType is "bearer"
	TokenType string `json:"token_type"`
}

// TokenPair is the stored form of the two tokens. The authenticating
// Transport reads and writes pairs through a TokenStore; it never keeps its
// own copy between requests.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Valid reports whether both halves are present.
func (p TokenPair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// ============================================================================
// Backend Records
// ============================================================================

// CustomerRecord is a backend customer reachable by the current token.
type CustomerRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserRecord is the authoritative user detail from GET /users/me.
type UserRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	RoleID    int     `json:"role_id"`
	RoleName  string  `json:"role_name"`
	Customers []int64 `json:"customers"`
}
