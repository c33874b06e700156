package domain

// TokenPair is what the token endpoint returns: the short-lived access token
// (JWT) and the opaque refresh token.
//
// A pair is either absent or complete. Storage and session code never keep
// one field without the other; Valid guards the invariant at the edges.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
}

// Valid reports whether both halves of the pair are present.
func (p TokenPair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}
