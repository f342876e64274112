package domain

import "time"

// Role enumerates the storefront account roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDealer   Role = "dealer"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

// Roles lists every recognized role.
var Roles = []Role{RoleAdmin, RoleDealer, RoleEmployee, RoleCustomer}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDealer, RoleEmployee, RoleCustomer:
		return true
	}
	return false
}

// Principal is the authenticated identity tokens and credentials bind to.
// The auth core reads ID and Role; it mutates only PasswordHash and Verified
// as the final step of reset/verification consumption.
type Principal struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
