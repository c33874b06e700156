// Package app wires the console's session core together: configuration,
// logging, the durable state store, the backend client with its
// authenticating transport, and the session manager everything else
// consumes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/atlasboard/atlasboard/internal/session"
	"github.com/atlasboard/atlasboard/internal/session/domain"
	"github.com/atlasboard/atlasboard/internal/session/store/drivers/sqlite"
	"github.com/atlasboard/atlasboard/pkg/consolesdk"
	"github.com/atlasboard/atlasboard/pkg/cryptox"
	"github.com/atlasboard/atlasboard/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the wired session core.
type Application struct {
	Cfg     Config
	Logger  *slog.Logger
	Client  *consolesdk.Client
	Session *session.Manager

	store *sqlite.Store
}

// New initializes the application: state store with migrations applied,
// backend client, authenticating transport and session manager.
func New(cfg Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		App:     "atlasctl",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	cryptox.SetStateKeyPath(cfg.StateKeyFile)

	if err := os.MkdirAll(filepath.Dir(cfg.StateFile), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", cfg.StateFile)
	st, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session state store: %w", err)
	}
	if err := st.ApplyMigrations(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to apply state migrations: %w", err)
	}

	client := consolesdk.NewClient(cfg.AuthBaseURL, cfg.APIBaseURL,
		consolesdk.WithLogger(logger))

	mgr := session.NewManager(
		client,
		client,
		&session.CatalogLoader{Customers: client},
		st,
		logger,
	)

	tr := consolesdk.NewTransport(&tokenStoreAdapter{st: st}, client)
	tr.Logger = logger
	tr.ActiveCustomer = mgr.ActiveCustomerID
	tr.OnSessionExpired = mgr.HandleSessionExpired
	client.API = &http.Client{
		Transport: tr,
		Timeout:   cfg.HTTPTimeout,
		Jar:       client.HTTPClient.Jar,
	}

	return &Application{
		Cfg:     cfg,
		Logger:  logger,
		Client:  client,
		Session: mgr,
		store:   st,
	}, nil
}

// Close releases the state store.
func (a *Application) Close() error {
	return a.store.Close()
}

// tokenStoreAdapter exposes the session store's token pair to the transport
// without the transport depending on the internal domain types.
type tokenStoreAdapter struct {
	st *sqlite.Store
}

func (a *tokenStoreAdapter) Tokens(ctx context.Context) (consolesdk.TokenPair, bool, error) {
	pair, ok, err := a.st.Tokens(ctx)
	if err != nil || !ok {
		return consolesdk.TokenPair{}, false, err
	}
	return consolesdk.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, true, nil
}

func (a *tokenStoreAdapter) SetTokens(ctx context.Context, pair consolesdk.TokenPair) error {
	return a.st.SetTokens(ctx, domain.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (a *tokenStoreAdapter) Clear(ctx context.Context) error {
	return a.st.Clear(ctx)
}
