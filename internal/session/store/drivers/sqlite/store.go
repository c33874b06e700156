package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atlasboard/atlasboard/internal/session/domain"
	"github.com/atlasboard/atlasboard/internal/session/store"
	"github.com/atlasboard/atlasboard/pkg/cryptox"

	_ "modernc.org/sqlite"
)

// State keys. All four are cleared together on logout.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyPrincipal    = "principal"
	keyActiveTenant = "active_tenant"
)

// Store is the SQLite-backed session state store. Token values are sealed
// with cryptox before hitting disk; the principal and tenant id are plain
// JSON/text since they carry nothing the backend does not already show.
type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single writer: the console is one process and busy_timeout in the DSN
	// already covers a second invocation racing on the same file.
	db.SetMaxOpenConns(1)

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) SetTokens(ctx context.Context, pair domain.TokenPair) error {
	if !pair.Valid() {
		return fmt.Errorf("sqlite: refusing to store a partial token pair")
	}

	access, err := cryptox.Seal([]byte(pair.AccessToken))
	if err != nil {
		return fmt.Errorf("sqlite: seal access token: %w", err)
	}
	refresh, err := cryptox.Seal([]byte(pair.RefreshToken))
	if err != nil {
		return fmt.Errorf("sqlite: seal refresh token: %w", err)
	}

	// Both halves in one transaction so a crash never leaves half a pair.
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsert(ctx, tx, keyAccessToken, access); err != nil {
			return err
		}
		return upsert(ctx, tx, keyRefreshToken, refresh)
	})
}

func (s *Store) Tokens(ctx context.Context) (domain.TokenPair, bool, error) {
	access, err := s.get(ctx, keyAccessToken)
	if errors.Is(err, store.ErrNotFound) {
		return domain.TokenPair{}, false, nil
	}
	if err != nil {
		return domain.TokenPair{}, false, err
	}

	refresh, err := s.get(ctx, keyRefreshToken)
	if errors.Is(err, store.ErrNotFound) {
		// Half a pair on disk means a corrupted state file; treat as logged
		// out rather than surfacing a broken session.
		return domain.TokenPair{}, false, nil
	}
	if err != nil {
		return domain.TokenPair{}, false, err
	}

	accessPlain, err := cryptox.Open(access)
	if err != nil {
		return domain.TokenPair{}, false, nil
	}
	refreshPlain, err := cryptox.Open(refresh)
	if err != nil {
		return domain.TokenPair{}, false, nil
	}

	return domain.TokenPair{
		AccessToken:  string(accessPlain),
		RefreshToken: string(refreshPlain),
	}, true, nil
}

func (s *Store) SetPrincipal(ctx context.Context, p domain.Principal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("sqlite: marshal principal: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsert(ctx, tx, keyPrincipal, data)
	})
}

func (s *Store) Principal(ctx context.Context) (domain.Principal, bool, error) {
	data, err := s.get(ctx, keyPrincipal)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, false, nil
	}
	if err != nil {
		return domain.Principal{}, false, err
	}

	var p domain.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Principal{}, false, nil
	}
	return p, true, nil
}

func (s *Store) SetActiveTenant(ctx context.Context, tenantID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsert(ctx, tx, keyActiveTenant, []byte(tenantID))
	})
}

func (s *Store) ActiveTenant(ctx context.Context) (string, bool, error) {
	data, err := s.get(ctx, keyActiveTenant)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM session_state;`)
		return err
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Safe to call even after commit
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func upsert(ctx context.Context, tx *sql.Tx, key string, value []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at;
	`, key, value)
	return err
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE key = ?;`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}
