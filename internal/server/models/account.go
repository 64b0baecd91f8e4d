// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is an account's capability tier. The zero value is not a valid role.
type Role string

const (
	RoleUser       Role = "User"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
)

// Roles lists every valid role, lowest tier first.
var Roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

// Account is a registered principal.
type Account struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}
