package jwtx

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mintToken builds an unsigned token with the given payload. The decoder
// never checks the signature, so an empty third segment is enough.
func mintToken(t *testing.T, payload map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(body) + "."
}

func TestDecode(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()

	t.Run("full claim set", func(t *testing.T) {
		token := mintToken(t, map[string]any{
			"sub":       "u-42",
			"role_id":   2,
			"customers": []int64{5, 7},
			"exp":       exp,
			"name":      "Pat Admin",
			"email":     "pat@example.com",
			"role":      "Operations",
		})

		claims, err := Decode(token)
		require.NoError(t, err)
		require.Equal(t, "u-42", claims.Subject)
		require.Equal(t, []int64{5, 7}, claims.Customers)
		require.Equal(t, "Pat Admin", claims.Name)
		require.Equal(t, "pat@example.com", claims.Email)
		require.Equal(t, "Operations", claims.Role)

		tier, ok := claims.RoleTier()
		require.True(t, ok)
		require.Equal(t, 2, tier)

		require.False(t, claims.Expired(time.Now()))
		require.Equal(t, exp, claims.ExpiresAt.Unix())
	})

	t.Run("role tier from roles array", func(t *testing.T) {
		token := mintToken(t, map[string]any{
			"sub":   "u-9",
			"roles": []int{4, 8},
		})

		claims, err := Decode(token)
		require.NoError(t, err)

		tier, ok := claims.RoleTier()
		require.True(t, ok)
		require.Equal(t, 4, tier)
	})

	t.Run("role_id wins over roles", func(t *testing.T) {
		token := mintToken(t, map[string]any{
			"sub":     "u-9",
			"role_id": 1,
			"roles":   []int{6},
		})

		claims, err := Decode(token)
		require.NoError(t, err)

		tier, ok := claims.RoleTier()
		require.True(t, ok)
		require.Equal(t, 1, tier)
	})

	t.Run("no role claim", func(t *testing.T) {
		token := mintToken(t, map[string]any{"sub": "u-9"})

		claims, err := Decode(token)
		require.NoError(t, err)

		_, ok := claims.RoleTier()
		require.False(t, ok)
	})

	t.Run("expired token still decodes", func(t *testing.T) {
		token := mintToken(t, map[string]any{
			"sub": "u-9",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		claims, err := Decode(token)
		require.NoError(t, err)
		require.True(t, claims.Expired(time.Now()))
		require.Negative(t, claims.ExpiresIn(time.Now()))
	})
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a token", "hello world"},
		{"two segments", "abc.def"},
		{"bad base64 payload", "eyJhbGciOiJIUzI1NiJ9.!!!not-base64!!!.sig"},
		{"payload not json", "eyJhbGciOiJIUzI1NiJ9." + "bm90IGpzb24" + ".sig"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := Decode(tc.token)
			require.ErrorIs(t, err, ErrMalformed)
			require.Nil(t, claims)
		})
	}
}

func TestDecodeIsPure(t *testing.T) {
	t.Parallel()

	token := mintToken(t, map[string]any{"sub": "u-1", "role_id": 3})

	first, err := Decode(token)
	require.NoError(t, err)

	second, err := Decode(token)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Malformed input is stable too: always the same error, never a panic.
	for range 3 {
		_, err := Decode("garbage")
		require.ErrorIs(t, err, ErrMalformed)
	}
}
