// Package auth protects the API with an admin password, signed bearer tokens
// and API keys for applications.
package auth

import "fmt"

type Role string

const (
	RoleUser    Role = "user"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:    1,
	RoleTrainer: 2,
	RoleAdmin:   3,
}

// Allows reports whether r grants at least the required role.
func (r Role) Allows(required Role) bool {
	return roleRank[r] >= roleRank[required] && roleRank[r] > 0
}

// ParseAPIKeyRole accepts the roles an API key may carry. Admin rights are
// reserved to the password login.
func ParseAPIKeyRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleTrainer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("api key role must be user or trainer, got %q", s)
	}
}
