package auth

import "context"

type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleMember, RoleTrainer, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID    int64
	Email string
	Role  Role
}

func (i Identity) IsAdmin() bool   { return i.Role == RoleAdmin }
func (i Identity) IsTrainer() bool { return i.Role == RoleTrainer }
func (i Identity) IsMember() bool  { return i.Role == RoleMember }

// RoleResolver returns the stored role of an account.
type RoleResolver interface {
	ResolveRole(ctx context.Context, accountID int64) (Role, error)
}
