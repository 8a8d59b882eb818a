package domain

import "errors"

// Role represents an authenticated caller's access level.
type Role string

const (
	// RoleAdmin manages the directory and operational surfaces.
	RoleAdmin Role = "admin"

	// RoleOperator runs the scheduled batch jobs: default checks and liquidations.
	RoleOperator Role = "operator"

	// RoleUser is a lender or borrower acting on its own accounts and loans.
	RoleUser Role = "user"
)

// Valid roles
var validRoles = map[Role]bool{
	RoleAdmin:    true,
	RoleOperator: true,
	RoleUser:     true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanRunBatch checks if the role can invoke batch default checks and liquidations.
func (r Role) CanRunBatch() bool {
	return r == RoleAdmin || r == RoleOperator
}

// CanManageDirectory checks if the role can register directory names.
func (r Role) CanManageDirectory() bool {
	return r == RoleAdmin
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
