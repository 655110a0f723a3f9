package model

import (
	"time"
)

// Ticket is a request towards one or more staff members that has to be
// acknowledged by each of them, optionally bounded by a due date. The public
// summary message referenced here is rewritten whenever a recipient's status
// changes.
type Ticket struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ChannelID and SummaryMessageID reference the public summary message.
	ChannelID        string `json:"channel_id"`
	SummaryMessageID string `gorm:"uniqueIndex" json:"summary_message_id"`

	// CreatedBy is the chat-platform user that created the request.
	CreatedBy string `json:"created_by"`

	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`

	// DueDate is optional; only the calendar date is significant.
	DueDate *time.Time `gorm:"type:date" json:"due_date,omitempty"`

	// LastRemindAt is the time the last reminder round was sent; nil before
	// the first round.
	LastRemindAt *time.Time `json:"last_remind_at,omitempty"`

	// DueNotified guarantees the overdue notice is sent exactly once.
	DueNotified bool `json:"due_notified"`

	Recipients []TicketRecipient `gorm:"constraint:OnDelete:CASCADE" json:"recipients"`
}

// RecipientsByStatus returns the recipients currently in the passed status.
func (t *Ticket) RecipientsByStatus(status RecipientStatus) []TicketRecipient {
	var out []TicketRecipient
	for _, r := range t.Recipients {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// PendingRecipients returns the recipients that have not acted yet.
func (t *Ticket) PendingRecipients() []TicketRecipient {
	return t.RecipientsByStatus(StatusPending)
}

// TicketRecipient is one addressee of a Ticket, tracked independently through
// the acknowledgement workflow. Rows are only ever deleted together with
// their parent ticket.
type TicketRecipient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TicketID uint `gorm:"index" json:"ticket_id"`

	// SubjectID is the chat-platform user this row tracks.
	SubjectID string `gorm:"index" json:"subject_id"`

	// DMChannelID and DMMessageID reference the private notification sent at
	// commit time; empty when delivery failed.
	DMChannelID string `json:"dm_channel_id"`
	DMMessageID string `gorm:"index" json:"dm_message_id"`

	Status RecipientStatus `json:"status"`

	// DeliveryError records a failed private-notification send at commit time
	// so the creator can follow up manually.
	DeliveryError string `json:"delivery_error,omitempty"`
}

// TicketStore abstracts persistence for tickets and their recipients.
type TicketStore interface {
	// Create inserts the ticket together with its recipient rows in a single
	// transaction.
	Create(t *Ticket) error
	// Get returns a ticket with its recipients preloaded.
	Get(id uint) (*Ticket, error)
	// FindBySummaryRef returns the ticket owning the passed summary message.
	FindBySummaryRef(messageID string) (*Ticket, error)
	// FindRecipientByDMRef returns the recipient owning the passed private
	// notification message.
	FindRecipientByDMRef(messageID string) (*TicketRecipient, error)
	// List returns all tickets with recipients preloaded.
	List() ([]Ticket, error)
	// ListOverdue returns tickets whose due date is strictly before the
	// passed day and that have not been flagged as notified yet.
	ListOverdue(today time.Time) ([]Ticket, error)
	// SetRecipientStatus transitions a recipient, enforcing transition
	// legality; illegal transitions yield an InvalidTransitionError.
	SetRecipientStatus(recipientID uint, to RecipientStatus) error
	// SetSummaryRef records the public-summary refs after posting.
	SetSummaryRef(ticketID uint, channelID, messageID string) error
	// SetRecipientDM records the private-notification refs after delivery.
	SetRecipientDM(recipientID uint, channelID, messageID string) error
	// SetDeliveryError records a failed private-notification send.
	SetDeliveryError(recipientID uint, msg string) error
	// SetLastRemindAt advances the reminder watermark.
	SetLastRemindAt(ticketID uint, at time.Time) error
	// MarkDueNotified sets the idempotency flag for the overdue notice.
	MarkDueNotified(ticketID uint) error
	// CloseRecipients bulk-transitions all pending recipients of the ticket
	// to the passed terminal status and returns the affected rows.
	CloseRecipients(ticketID uint, to RecipientStatus) ([]TicketRecipient, error)
	// Delete removes the ticket and, via cascade, its recipients.
	Delete(ticketID uint) error
}
