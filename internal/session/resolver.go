package session

import "github.com/atlasboard/atlasboard/internal/session/domain"

// Resolve picks the active tenant from the catalog. Priority, in order:
//
//  1. the persisted choice, when it is still an element of the catalog
//  2. the internal system tenant, for every role that can see it
//  3. the first customer tenant, else the first element of any kind
//
// ok is false only when the catalog is empty. A persisted id that is no
// longer in the catalog (membership revoked, catalog not yet loaded) is
// treated as absent, never selected.
//
// Resolve is pure; persisting the result is the caller's job.
func Resolve(catalog []domain.Tenant, persistedChoice string) (domain.Tenant, bool) {
	if persistedChoice != "" {
		for _, t := range catalog {
			if t.ID == persistedChoice {
				return t, true
			}
		}
	}

	for _, t := range catalog {
		if t.Kind == domain.KindSystemInternal {
			return t, true
		}
	}

	for _, t := range catalog {
		if t.Kind == domain.KindCustomer {
			return t, true
		}
	}

	if len(catalog) > 0 {
		return catalog[0], true
	}

	return domain.Tenant{}, false
}
