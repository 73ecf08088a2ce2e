package enums

import "slices"

// UserRole is the closed set of account roles supplied by the identity provider.
type UserRole string

const (
	UserRoleCustomer      UserRole = "customer"
	UserRoleBusinessOwner UserRole = "business_owner"
	UserRoleAdmin         UserRole = "admin"
)

var userRoles = []UserRole{UserRoleCustomer, UserRoleBusinessOwner, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return slices.Contains(userRoles, r) }

func ParseUserRole(value string) (UserRole, error) {
	return member(userRoles, "user role", value)
}
