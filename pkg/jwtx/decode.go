package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed reports a token that could not be decoded. Callers treat this
// as "no session", never as a fatal condition.
var ErrMalformed = errors.New("jwtx: malformed token")

var parser = jwt.NewParser()

// Decode splits the token into its three segments, base64url-decodes the
// payload and unmarshals it into Claims. The signature segment is ignored;
// see the package documentation for why.
//
// Decode is a pure function: the same input always yields the same Claims or
// the same error, and malformed input never panics.
func Decode(accessToken string) (*Claims, error) {
	if accessToken == "" {
		return nil, ErrMalformed
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}

	return claims, nil
}
