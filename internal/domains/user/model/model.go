package model

import (
	"parking/shared/constant"
	"parking/shared/model"
	"slices"

	"github.com/lib/pq"
)

const (
	TableName  = "users"
	EntityName = "user"

	FieldID    = "id"
	FieldEmail = "email"
	FieldRoles = "roles"
)

// User holds the roles granted to an identity inside this service. Identities themselves
// live with the identity provider; a row only exists once a role was granted.
type User struct {
	ID    string         `db:"id"`
	Email *string        `db:"email"`
	Roles pq.StringArray `db:"roles"`
	model.Metadata
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Grant returns the roles with role added once. The base user role is always kept.
func (u User) Grant(role string) []string {
	roles := []string{constant.RoleUser}

	for _, existing := range append(slices.Clone(u.Roles), role) {
		if !slices.Contains(roles, existing) {
			roles = append(roles, existing)
		}
	}

	return roles
}
