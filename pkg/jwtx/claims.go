// Package jwtx decodes the payload of bearer tokens issued by the AtlasBoard
// auth endpoint.
//
// Decoding is strictly advisory: no signature verification is performed here,
// deliberately. The console never makes a trust decision from these claims;
// the issuing server validates signatures and enforces authorization on every
// request, and TLS protects the transport. The decoded payload only lets the
// UI know who it is talking as before the server confirms it.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded (unverified) access-token payload.
type Claims struct {
	jwt.RegisteredClaims

	// RoleID is the role tier (1-10, lower = more privileged).
	RoleID int `json:"role_id,omitempty"`

	// Roles is an alternative claim shape some token versions carry; the
	// first element is the role tier.
	Roles []int `json:"roles,omitempty"`

	// Customers lists the customer ids the subject is a member of.
	Customers []int64 `json:"customers,omitempty"`

	// Display fields, present on newer tokens.
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// RoleTier returns the role tier, preferring role_id over roles[0].
// ok is false when neither claim is present.
func (c *Claims) RoleTier() (tier int, ok bool) {
	if c.RoleID != 0 {
		return c.RoleID, true
	}
	if len(c.Roles) > 0 {
		return c.Roles[0], true
	}
	return 0, false
}

// ExpiresIn reports the remaining token lifetime relative to now.
// A token with no exp claim reports zero.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Expired reports whether the exp claim is in the past. Tokens without an
// exp claim are never considered expired here; the server decides.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Time)
}
