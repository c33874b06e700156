package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlasboard/atlasboard/internal/session/domain"
	"github.com/atlasboard/atlasboard/pkg/consolesdk"
	"github.com/atlasboard/atlasboard/pkg/slogx"
)

// ErrCatalogDegraded reports that the customer fetch failed and the returned
// catalog contains only the synthesized system tenants. It is informational:
// the catalog that comes with it is still usable, because losing customer
// data must never lock an admin out of the system tenants.
var ErrCatalogDegraded = errors.New("session: tenant catalog degraded to system tenants")

// CustomerLister fetches backend customer records. *consolesdk.Client
// implements it.
type CustomerLister interface {
	ListCustomers(ctx context.Context) ([]consolesdk.CustomerRecord, error)
}

// CatalogLoader builds the ordered set of tenants the principal may operate
// in: the locally synthesized system tenants first, then one customer tenant
// per backend customer record the principal is a member of.
type CatalogLoader struct {
	Customers CustomerLister
}

// Load returns the tenant catalog for the principal. A fetch failure is not
// fatal: the catalog falls back to the system tenants appropriate to the
// role and the error wraps ErrCatalogDegraded so the caller can decide to
// retry.
func (l *CatalogLoader) Load(ctx context.Context, p domain.Principal) ([]domain.Tenant, error) {
	catalog := SystemTenantsFor(p)

	records, err := l.Customers.ListCustomers(ctx)
	if err != nil {
		slogx.FromContext(ctx).Warn("customer fetch failed, catalog degraded",
			"role_tier", p.RoleTier, "error", err)
		return catalog, fmt.Errorf("%w: %w", ErrCatalogDegraded, err)
	}

	for _, rec := range records {
		if !p.MemberOf(rec.ID) {
			continue
		}
		catalog = append(catalog, domain.CustomerTenant(rec.ID, rec.Name))
	}

	return catalog, nil
}

// SystemTenantsFor synthesizes the system tenants the role tier grants:
// admin tiers see both, the pure-customer tier sees neither, every other
// tier sees the internal tenant.
func SystemTenantsFor(p domain.Principal) []domain.Tenant {
	switch {
	case p.IsAdmin():
		return []domain.Tenant{domain.SystemInternal, domain.SystemAdmin}
	case p.IsCustomerOnly():
		return nil
	default:
		return []domain.Tenant{domain.SystemInternal}
	}
}
