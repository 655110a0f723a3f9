package model

import (
	"time"

	"gorm.io/datatypes"
)

// DraftStage tracks the wizard stage a ticket draft has reached.
type DraftStage string

// Constants for DraftStage
const (
	DraftStageCompose  DraftStage = "compose"
	DraftStageSelected DraftStage = "selected"
)

// TicketDraft is the durable state of an in-progress ticket wizard. Drafts
// replace volatile in-process wizard state: every interaction callback
// carries the draft token, so a restart never loses an in-flight wizard.
type TicketDraft struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Token is the opaque identifier carried through the wizard's
	// interaction callbacks.
	Token string `gorm:"uniqueIndex" json:"token"`

	CreatedBy string     `json:"created_by"`
	ChannelID string     `json:"channel_id"`
	Stage     DraftStage `gorm:"size:20" json:"stage"`

	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	DueDate     *time.Time `gorm:"type:date" json:"due_date,omitempty"`

	// Targets holds the resolved recipient subject ids after the selection stage.
	Targets datatypes.JSONSlice[string] `json:"targets"`
}

// DraftStore abstracts persistence for ticket drafts.
type DraftStore interface {
	// Put inserts or replaces the draft identified by its token.
	Put(d *TicketDraft) error
	// Get returns a draft by token.
	Get(token string) (*TicketDraft, error)
	// Delete removes a draft by token.
	Delete(token string) error
}
