package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleViewer  StaffRole = "VIEWER"
	StaffRoleManager StaffRole = "MANAGER"
	StaffRoleAdmin   StaffRole = "ADMIN"
)

// IsValid reports whether r is a known role.
func (r StaffRole) IsValid() bool {
	switch r {
	case StaffRoleViewer, StaffRoleManager, StaffRoleAdmin:
		return true
	}
	return false
}

// StaffMember models an internal user of the catalogue.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
