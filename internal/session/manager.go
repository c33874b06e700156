// Package session owns the console's session state: the signed-in principal,
// the token pair (through the store), the tenant catalog and the active
// tenant. All mutation goes through the named transitions on Manager: Login,
// Logout, Resume, SetTenant and the expiry hook the authenticating transport
// fires. UI code consumes the state through snapshots and subscriptions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/atlasboard/atlasboard/internal/session/domain"
	"github.com/atlasboard/atlasboard/internal/session/store"
	"github.com/atlasboard/atlasboard/pkg/consolesdk"
	"github.com/atlasboard/atlasboard/pkg/jwtx"
)

// Exchanger performs the password-grant exchange. *consolesdk.Client
// implements it.
type Exchanger interface {
	PasswordLogin(ctx context.Context, email, password string) (*consolesdk.TokenResponse, error)
}

// UserDirectory fetches the authoritative user detail. *consolesdk.Client
// implements it.
type UserDirectory interface {
	CurrentUser(ctx context.Context) (*consolesdk.UserRecord, error)
}

// Catalog loads the tenant catalog for a principal. *CatalogLoader
// implements it.
type Catalog interface {
	Load(ctx context.Context, p domain.Principal) ([]domain.Tenant, error)
}

// Snapshot is the published session state. ActiveTenant may legitimately be
// nil while Authenticated is true and CatalogLoading is set; consumers must
// treat that as a loading sub-state, not an error.
type Snapshot struct {
	Authenticated  bool
	CatalogLoading bool
	Principal      *domain.Principal
	ActiveTenant   *domain.Tenant
	Tenants        []domain.Tenant
}

// Manager is the process-wide session state machine.
type Manager struct {
	exchanger Exchanger
	users     UserDirectory
	catalog   Catalog
	store     store.Store
	logger    *slog.Logger

	mu         sync.RWMutex
	generation uint64 // bumped on logout; in-flight work from an older generation is dropped
	principal  *domain.Principal
	tenants    []domain.Tenant
	active     *domain.Tenant
	loading    bool

	subMu   sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64
}

// NewManager wires a session manager over its collaborators.
func NewManager(
	exchanger Exchanger,
	users UserDirectory,
	catalog Catalog,
	st store.Store,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		exchanger: exchanger,
		users:     users,
		catalog:   catalog,
		store:     st,
		logger:    logger,
		subs:      make(map[uint64]func(Snapshot)),
	}
}

// ============================================================================
// Transitions
// ============================================================================

// Login runs the password exchange and establishes the session: tokens
// persisted, principal resolved, catalog loaded and the initial active
// tenant picked. The returned error is user-facing; exchange failures keep
// their AuthError typing so the UI can show invalid credentials inline.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	gen := m.currentGeneration()

	tok, err := m.exchanger.PasswordLogin(ctx, email, password)
	if err != nil {
		return err
	}

	pair := domain.TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if !pair.Valid() {
		return fmt.Errorf("session: login returned an incomplete token pair")
	}

	if m.stale(gen) {
		return fmt.Errorf("session: login abandoned, logged out while in flight")
	}

	if err := m.store.SetTokens(ctx, pair); err != nil {
		return fmt.Errorf("session: persist tokens: %w", err)
	}

	principal, err := m.establishPrincipal(ctx, pair.AccessToken)
	if err != nil {
		m.clearStore(ctx)
		return err
	}

	if err := m.store.SetPrincipal(ctx, principal); err != nil {
		m.logger.Warn("failed to persist principal", "error", err)
	}

	if m.stale(gen) {
		return fmt.Errorf("session: login abandoned, logged out while in flight")
	}

	// Publish the authenticated-but-loading state before the catalog fetch
	// so the UI can render while we wait.
	m.mu.Lock()
	m.principal = &principal
	m.tenants = nil
	m.active = nil
	m.loading = true
	m.mu.Unlock()
	m.notify()

	m.establishTenant(ctx, gen, principal)
	return nil
}

// Resume restores the session at process start from the persisted state.
// Every failure degrades to the safest available state instead of
// propagating: a missing or malformed token is simply "not signed in".
func (m *Manager) Resume(ctx context.Context) {
	gen := m.currentGeneration()

	pair, ok, err := m.store.Tokens(ctx)
	if err != nil {
		m.logger.Warn("failed to read token store during resume", "error", err)
		return
	}
	if !ok {
		return
	}

	claims, err := jwtx.Decode(pair.AccessToken)
	if err != nil {
		// Malformed stored token: treat as no session and drop the
		// leftovers so the next start is clean.
		m.logger.Warn("stored access token is malformed, discarding session")
		m.clearStore(ctx)
		return
	}

	principal, ok, err := m.store.Principal(ctx)
	if err != nil || !ok {
		principal = principalFromClaims(claims)
	}

	if m.stale(gen) {
		return
	}

	m.mu.Lock()
	m.principal = &principal
	m.tenants = nil
	m.active = nil
	m.loading = true
	m.mu.Unlock()
	m.notify()

	m.establishTenant(ctx, gen, principal)
}

// Logout clears the live state, the persisted state and bumps the
// generation so any in-flight refresh or catalog result is discarded. It is
// always safe to call.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.generation++
	m.principal = nil
	m.tenants = nil
	m.active = nil
	m.loading = false
	m.mu.Unlock()

	m.clearStore(context.Background())
	m.notify()
}

// SetTenant switches the active tenant by id and persists the choice. The
// id must name a member of the current catalog.
func (m *Manager) SetTenant(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	var selected *domain.Tenant
	for i := range m.tenants {
		if m.tenants[i].ID == tenantID {
			selected = &m.tenants[i]
			break
		}
	}
	if selected == nil {
		m.mu.Unlock()
		return fmt.Errorf("session: tenant %q is not in the current catalog", tenantID)
	}
	t := *selected
	m.active = &t
	m.mu.Unlock()

	if err := m.store.SetActiveTenant(ctx, t.ID); err != nil {
		m.logger.Warn("failed to persist active tenant", "tenant", t.ID, "error", err)
	}

	m.notify()
	return nil
}

// HandleSessionExpired is the transport's expiry hook: the token store is
// already cleared, so drop the live state as well.
func (m *Manager) HandleSessionExpired() {
	m.logger.Info("session expired, forcing logout")
	m.Logout()
}

// ============================================================================
// Collaborator surface
// ============================================================================

// AccessToken returns a copy of the current access token, or "" when logged
// out.
func (m *Manager) AccessToken(ctx context.Context) string {
	pair, ok, err := m.store.Tokens(ctx)
	if err != nil || !ok {
		return ""
	}
	return pair.AccessToken
}

// CurrentTenant returns the active tenant.
func (m *Manager) CurrentTenant() (domain.Tenant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return domain.Tenant{}, false
	}
	return *m.active, true
}

// Tenants returns a copy of the current catalog.
func (m *Manager) Tenants() []domain.Tenant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Tenant, len(m.tenants))
	copy(out, m.tenants)
	return out
}

// Principal returns the signed-in principal.
func (m *Manager) Principal() (domain.Principal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.principal == nil {
		return domain.Principal{}, false
	}
	return *m.principal, true
}

// Snapshot returns the full published state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// ActiveCustomerID returns the numeric customer id when the active tenant is
// a customer tenant, else "". The transport passes it along on refresh so
// the new token stays scoped to the tenant the user is operating in.
func (m *Manager) ActiveCustomerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil || m.active.Kind != domain.KindCustomer {
		return ""
	}
	return strings.TrimPrefix(m.active.ID, "c")
}

// Subscribe registers a state-change callback and returns its cancel
// function. The callback runs synchronously on the mutating goroutine and
// must not call back into the Manager's transitions.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// ============================================================================
// Internals
// ============================================================================

// establishPrincipal builds the Principal after a successful exchange. The
// authoritative source is the user-detail endpoint; when that fetch fails
// the decoded claims are trusted instead so a flaky backend does not block
// login. The claims are unverified, so this fallback leans entirely on the
// server re-checking authorization on every subsequent request.
func (m *Manager) establishPrincipal(ctx context.Context, accessToken string) (domain.Principal, error) {
	claims, decodeErr := jwtx.Decode(accessToken)

	user, err := m.users.CurrentUser(ctx)
	if err == nil {
		return principalFromUser(user), nil
	}
	m.logger.Warn("user detail fetch failed, falling back to token claims", "error", err)

	if decodeErr != nil {
		return domain.Principal{}, fmt.Errorf("session: cannot establish principal: %w", decodeErr)
	}
	return principalFromClaims(claims), nil
}

// establishTenant loads the catalog (one bounded fallback retry) and
// resolves the active tenant against the persisted choice, persisting the
// result. Failures degrade; this never reports an error to the user.
func (m *Manager) establishTenant(ctx context.Context, gen uint64, principal domain.Principal) {
	tenants, err := m.catalog.Load(ctx, principal)
	if err != nil {
		// One retry, then live with the degraded catalog.
		if retried, retryErr := m.catalog.Load(ctx, principal); retryErr == nil {
			tenants = retried
		} else {
			m.logger.Warn("tenant catalog retry failed", "error", retryErr)
		}
	}

	persisted, _, err := m.store.ActiveTenant(ctx)
	if err != nil {
		m.logger.Warn("failed to read persisted tenant choice", "error", err)
	}

	if m.stale(gen) {
		return
	}

	active, ok := Resolve(tenants, persisted)

	m.mu.Lock()
	m.tenants = tenants
	m.loading = false
	if ok {
		t := active
		m.active = &t
	} else {
		m.active = nil
	}
	m.mu.Unlock()

	if ok && active.ID != persisted {
		if err := m.store.SetActiveTenant(ctx, active.ID); err != nil {
			m.logger.Warn("failed to persist active tenant", "tenant", active.ID, "error", err)
		}
	}

	m.notify()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Authenticated:  m.principal != nil,
		CatalogLoading: m.loading,
	}
	if m.principal != nil {
		p := *m.principal
		snap.Principal = &p
	}
	if m.active != nil {
		t := *m.active
		snap.ActiveTenant = &t
	}
	snap.Tenants = make([]domain.Tenant, len(m.tenants))
	copy(snap.Tenants, m.tenants)
	return snap
}

func (m *Manager) notify() {
	m.mu.RLock()
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// stale reports whether a logout happened since gen was captured.
func (m *Manager) stale(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation != gen
}

// clearStore wipes the persisted state; logout must succeed even when the
// state file is unhappy, so failures are logged and swallowed.
func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear session store", "error", err)
	}
}

func principalFromUser(u *consolesdk.UserRecord) domain.Principal {
	return domain.Principal{
		ID:          u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
		RoleTier:    u.RoleID,
		RoleName:    u.RoleName,
		Customers:   u.Customers,
	}
}

func principalFromClaims(c *jwtx.Claims) domain.Principal {
	tier, _ := c.RoleTier()
	return domain.Principal{
		ID:          c.Subject,
		DisplayName: c.Name,
		Email:       c.Email,
		RoleTier:    tier,
		RoleName:    c.Role,
		Customers:   c.Customers,
	}
}
