package model

import (
	"time"
)

// RoleGroup is a named collection of chat-platform roles. Groups can be used
// as recipient references in the ticket wizard and expand to the members of
// all contained roles.
type RoleGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:100;uniqueIndex" json:"name"`
	Description string `gorm:"size:500" json:"description"`
	CreatedBy   string `json:"created_by"`

	Roles []RoleGroupRole `gorm:"constraint:OnDelete:CASCADE" json:"roles"`
}

// RoleGroupRole is one role contained in a RoleGroup.
type RoleGroupRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RoleGroupID uint   `gorm:"uniqueIndex:uq_group_role" json:"role_group_id"`
	RoleID      string `gorm:"uniqueIndex:uq_group_role" json:"role_id"`
}

// RoleGroupStore abstracts persistence for role groups.
type RoleGroupStore interface {
	// Create creates a group; duplicate names are rejected with an AlreadyExistsError.
	Create(name, description, createdBy string) (*RoleGroup, error)
	// Get returns a group by name with its roles preloaded.
	Get(name string) (*RoleGroup, error)
	// List returns all groups with their roles preloaded.
	List() ([]RoleGroup, error)
	// Delete removes a group and its role rows.
	Delete(name string) error
	// AddRole adds a role to a group.
	AddRole(name, roleID string) error
	// RemoveRole removes a role from a group.
	RemoveRole(name, roleID string) error
}
