package model

import (
	"time"
)

// Purposes for registered notification channels.
const (
	NotifyPurposeDelegation = "delegation"
	NotifyPurposeTickets    = "tickets"
)

// NotifyChannel registers a channel as an announcement target for a purpose.
type NotifyChannel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Purpose   string `gorm:"size:50;uniqueIndex:uq_purpose_channel" json:"purpose"`
	ChannelID string `gorm:"uniqueIndex:uq_purpose_channel" json:"channel_id"`
}

// NotifyChannelStore abstracts persistence for notification channels.
type NotifyChannelStore interface {
	// Register adds a channel for a purpose; duplicates are rejected with an
	// AlreadyExistsError.
	Register(purpose, channelID string) (*NotifyChannel, error)
	// List returns all channels registered for the purpose.
	List(purpose string) ([]NotifyChannel, error)
	// Remove deletes a registration.
	Remove(purpose, channelID string) error
}
