package model

// Role is a membership role within a tenant. Roles are ordered:
// viewer < agent < admin < owner.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// roleRank maps roles to their position in the ordering. Unknown roles rank
// below viewer so a corrupted role value can never widen access.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleAgent:  2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Valid reports whether the role is one of the recognized roles
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role meets or exceeds the minimum role
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[min] > 0
}

// String returns the role as a string
func (r Role) String() string {
	return string(r)
}
