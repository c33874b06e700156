package domain

// Role tier boundaries. Tiers are ordinal 1-10 with lower meaning more
// privileged; tier 4 is the pure-customer role.
const (
	MinAdminTier     = 1
	MaxAdminTier     = 3
	CustomerOnlyTier = 4
)

// Principal is the authenticated identity derived from a valid session.
// It is created when a login or resume successfully decodes a token and
// destroyed on logout or refresh failure.
type Principal struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	RoleTier    int     `json:"role_tier"`
	RoleName    string  `json:"role_name"`
	Customers   []int64 `json:"customers"`
}

// IsAdmin reports whether the principal's tier grants access to the
// administration tenant.
func (p Principal) IsAdmin() bool {
	return p.RoleTier >= MinAdminTier && p.RoleTier <= MaxAdminTier
}

// IsCustomerOnly reports whether the principal holds the pure-customer role,
// which never sees the system tenants.
func (p Principal) IsCustomerOnly() bool {
	return p.RoleTier == CustomerOnlyTier
}

// MemberOf reports whether the principal's membership includes the customer.
func (p Principal) MemberOf(customerID int64) bool {
	for _, id := range p.Customers {
		if id == customerID {
			return true
		}
	}
	return false
}
