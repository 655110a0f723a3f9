package model

import (
	"time"
)

// Privilege levels that can be granted on a site.
const (
	LevelModerator = "moderator"
	LevelAdmin     = "admin"
)

// DelegationGrant is a pending time-boxed privilege elevation. The privilege
// has already been granted on the wiki side; the row exists so that the
// expiry scanner revokes it at ExpiresAt.
type DelegationGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SubjectID is the chat-platform user the privilege was granted for.
	SubjectID string `gorm:"uniqueIndex:uq_grant_subject_site;index" json:"subject_id"`
	// AccountID is the linked wiki account that actually holds the privilege.
	AccountID int64 `json:"account_id"`
	// SiteID is the wiki site the privilege applies to.
	SiteID int64 `gorm:"uniqueIndex:uq_grant_subject_site" json:"site_id"`

	// GrantedLevel is the tier that was granted, LevelModerator or LevelAdmin.
	GrantedLevel string `gorm:"size:50" json:"granted_level"`

	// NotifyChannelID and NotifyMessageID reference the notice message that
	// carries the manual revoke button; completion notices reply to it.
	NotifyChannelID string `json:"notify_channel_id"`
	NotifyMessageID string `gorm:"index" json:"notify_message_id"`

	// ExpiresAt is the absolute time at or after which the grant must be revoked.
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantStore abstracts persistence for delegation grants.
type GrantStore interface {
	// Enqueue inserts a new grant. A second active grant for the same
	// (subject, site) pair is rejected with an AlreadyExistsError.
	Enqueue(g *DelegationGrant) error
	// FindExpired returns all grants with ExpiresAt <= now, in no particular order.
	FindExpired(now time.Time) ([]DelegationGrant, error)
	// FindActive returns the active grant for a (subject, site) pair.
	FindActive(subjectID string, siteID int64) (*DelegationGrant, error)
	// FindByNotifyRef returns the grant whose notice message matches the passed refs.
	FindByNotifyRef(channelID, messageID string) (*DelegationGrant, error)
	// Get returns a grant by id.
	Get(id uint) (*DelegationGrant, error)
	// List returns all pending grants.
	List() ([]DelegationGrant, error)
	// Remove deletes a grant by id.
	Remove(id uint) error
}
