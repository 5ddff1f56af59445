package session

import "fmt"

// Role is an ordered access level. The ordering is total: a route requiring
// RoleManager admits RoleManager and RoleAdmin callers. Beyond the ordering
// the value is opaque to this subsystem; permission semantics live with the
// business layer.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleViewer
	RoleAnalyst
	RoleManager
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleViewer:  "viewer",
	RoleAnalyst: "analyst",
	RoleManager: "manager",
	RoleAdmin:   "admin",
}

// ParseRole resolves a role name to its ordered value.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// AtLeast reports whether r satisfies the given minimum role.
func (r Role) AtLeast(min Role) bool {
	return r != RoleUnknown && r >= min
}

// MarshalText encodes the role by name for the session payload.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name. Unknown names fail, so a tampered or
// stale payload never yields an elevated role by accident.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
