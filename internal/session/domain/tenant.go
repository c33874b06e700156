package domain

import "strconv"

// TenantKind distinguishes the two locally synthesized system tenants from
// customer tenants fetched off the backend.
type TenantKind string

const (
	KindSystemInternal TenantKind = "system_internal"
	KindSystemAdmin    TenantKind = "system_admin"
	KindCustomer       TenantKind = "customer"
)

// Tenant is an organizational context that scopes what data and pages are
// visible: internal operations, the admin console, or a single customer.
type Tenant struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Kind        TenantKind `json:"kind"`
}

// The two system tenants exist exactly once per process and are never
// fetched; customer tenants are 1:1 with backend customer records.
var (
	SystemInternal = Tenant{ID: "internal", DisplayName: "Internal", Kind: KindSystemInternal}
	SystemAdmin    = Tenant{ID: "admin", DisplayName: "Administration", Kind: KindSystemAdmin}
)

// CustomerTenantID maps a backend customer id onto its tenant id.
func CustomerTenantID(customerID int64) string {
	return "c" + strconv.FormatInt(customerID, 10)
}

// CustomerTenant builds the tenant for a backend customer record.
func CustomerTenant(customerID int64, name string) Tenant {
	return Tenant{
		ID:          CustomerTenantID(customerID),
		DisplayName: name,
		Kind:        KindCustomer,
	}
}
