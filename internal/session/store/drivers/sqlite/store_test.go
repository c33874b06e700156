package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlasboard/atlasboard/internal/session/domain"
	"github.com/atlasboard/atlasboard/pkg/cryptox"
)

// newTestStore opens a migrated store over a throwaway state file. Tests
// that use it share the process-global seal key, so no t.Parallel here.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	cryptox.ResetStateKeyForTesting()
	t.Setenv("ATLAS_STATE_KEY", "test-state-key")

	dsn := filepath.Join(t.TempDir(), "state.db") + "?_busy_timeout=5000"
	st, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(context.Background()))
	return st
}

func TestTokensRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, ok, err := st.Tokens(ctx)
	require.NoError(t, err)
	require.False(t, ok, "fresh store has no tokens")

	pair := domain.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, st.SetTokens(ctx, pair))

	got, ok, err := st.Tokens(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pair, got)

	// Rotation overwrites in place.
	rotated := domain.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}
	require.NoError(t, st.SetTokens(ctx, rotated))

	got, ok, err = st.Tokens(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rotated, got)
}

func TestSetTokensRejectsPartialPair(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.Error(t, st.SetTokens(ctx, domain.TokenPair{AccessToken: "access-1"}))
	require.Error(t, st.SetTokens(ctx, domain.TokenPair{RefreshToken: "refresh-1"}))

	_, ok, err := st.Tokens(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTokensAreSealedAtRest(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	pair := domain.TokenPair{AccessToken: "access-secret", RefreshToken: "refresh-secret"}
	require.NoError(t, st.SetTokens(ctx, pair))

	var raw []byte
	err := st.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?;`, keyAccessToken,
	).Scan(&raw)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "access-secret")

	plain, err := cryptox.Open(raw)
	require.NoError(t, err)
	require.Equal(t, "access-secret", string(plain))
}

func TestUnreadableTokensReadAsLoggedOut(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Garbage on disk, e.g. the state file was written under another key.
	require.NoError(t, st.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsert(ctx, tx, keyAccessToken, []byte("garbage")); err != nil {
			return err
		}
		return upsert(ctx, tx, keyRefreshToken, []byte("garbage"))
	}))

	_, ok, err := st.Tokens(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrincipalRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, ok, err := st.Principal(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	p := domain.Principal{
		ID:          "u-42",
		DisplayName: "Pat Admin",
		Email:       "pat@example.com",
		RoleTier:    2,
		RoleName:    "Operations",
		Customers:   []int64{5, 7},
	}
	require.NoError(t, st.SetPrincipal(ctx, p))

	got, ok, err := st.Principal(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p, got)
}

func TestActiveTenantRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, ok, err := st.ActiveTenant(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.SetActiveTenant(ctx, "c7"))

	got, ok, err := st.ActiveTenant(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c7", got)

	require.NoError(t, st.SetActiveTenant(ctx, "internal"))
	got, _, err = st.ActiveTenant(ctx)
	require.NoError(t, err)
	require.Equal(t, "internal", got)
}

func TestClearWipesEverything(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetTokens(ctx, domain.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, st.SetPrincipal(ctx, domain.Principal{ID: "u-42", RoleTier: 2}))
	require.NoError(t, st.SetActiveTenant(ctx, "c7"))

	require.NoError(t, st.Clear(ctx))

	_, ok, err := st.Tokens(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = st.Principal(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = st.ActiveTenant(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// Idempotent.
	require.NoError(t, st.Clear(ctx))
}

func TestStateSurvivesReopen(t *testing.T) {
	cryptox.ResetStateKeyForTesting()
	t.Setenv("ATLAS_STATE_KEY", "test-state-key")

	dsn := filepath.Join(t.TempDir(), "state.db") + "?_busy_timeout=5000"
	ctx := context.Background()

	st, err := NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())

	pair := domain.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, st.SetTokens(ctx, pair))
	require.NoError(t, st.SetActiveTenant(ctx, "c7"))
	require.NoError(t, st.Close())

	// A new process over the same file.
	st2, err := NewStore(dsn)
	require.NoError(t, err)
	defer st2.Close()
	require.NoError(t, st2.ApplyMigrations())

	got, ok, err := st2.Tokens(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pair, got)

	tenant, ok, err := st2.ActiveTenant(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "c7", tenant)
}
