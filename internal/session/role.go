package session

import "strings"

type Role int

const (
	// RoleUnknown means the backend has not told us a role.
	RoleUnknown Role = iota
	RoleCustomer
	RoleVendor
	RoleAdmin
)

func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "user":
		return RoleCustomer
	case "vendor", "seller":
		return RoleVendor
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// OrDefault resolves an undetermined role to least privilege.
func (r Role) OrDefault() Role {
	if r == RoleUnknown {
		return RoleCustomer
	}
	return r
}

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleVendor:
		return "vendor"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}
