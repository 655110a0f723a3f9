package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/commkit/steward/storage/model"
)

// TicketStorage implements model.TicketStore using GORM
type TicketStorage struct {
	db *gorm.DB
}

// Create inserts the ticket together with its recipient rows in a single
// transaction.
func (s *TicketStorage) Create(t *model.Ticket) error {
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			return tx.Create(t).Error
		},
	)
}

// Get returns a ticket with its recipients preloaded
func (s *TicketStorage) Get(id uint) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.Preload("Recipients").First(&t, id).Error; err != nil {
		return nil, model.NotFoundErrorFmt("ticket not found: %d", id)
	}
	return &t, nil
}

// FindBySummaryRef returns the ticket owning the passed summary message
func (s *TicketStorage) FindBySummaryRef(messageID string) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.Preload("Recipients").Where("summary_message_id = ?", messageID).First(&t).Error
	if err != nil {
		return nil, model.NotFoundErrorFmt("no ticket for summary message %s", messageID)
	}
	return &t, nil
}

// FindRecipientByDMRef returns the recipient owning the passed private
// notification message
func (s *TicketStorage) FindRecipientByDMRef(messageID string) (*model.TicketRecipient, error) {
	var r model.TicketRecipient
	err := s.db.Where("dm_message_id = ?", messageID).First(&r).Error
	if err != nil {
		return nil, model.NotFoundErrorFmt("no recipient for message %s", messageID)
	}
	return &r, nil
}

// List returns all tickets with recipients preloaded
func (s *TicketStorage) List() ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := s.db.Preload("Recipients").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListOverdue returns tickets whose due date is strictly before the passed
// day and that have not been flagged as notified yet.
func (s *TicketStorage) ListOverdue(today time.Time) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := s.db.Preload("Recipients").
		Where("due_date IS NOT NULL AND due_date < ? AND due_notified = ?", today, false).
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// SetRecipientStatus transitions a recipient, enforcing transition legality.
func (s *TicketStorage) SetRecipientStatus(recipientID uint, to model.RecipientStatus) error {
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			var r model.TicketRecipient
			if err := tx.First(&r, recipientID).Error; err != nil {
				return model.NotFoundErrorFmt("recipient not found: %d", recipientID)
			}
			if !r.Status.CanTransition(to) {
				return model.InvalidTransitionErrorFmt(
					"recipient %d cannot move from %s to %s", recipientID, r.Status, to,
				)
			}
			return tx.Model(&r).Update("status", to).Error
		},
	)
}

// SetSummaryRef records the public-summary refs after posting
func (s *TicketStorage) SetSummaryRef(ticketID uint, channelID, messageID string) error {
	res := s.db.Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Updates(map[string]any{"channel_id": channelID, "summary_message_id": messageID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("ticket not found: %d", ticketID)
	}
	return nil
}

// SetRecipientDM records the private-notification refs after delivery
func (s *TicketStorage) SetRecipientDM(recipientID uint, channelID, messageID string) error {
	res := s.db.Model(&model.TicketRecipient{}).
		Where("id = ?", recipientID).
		Updates(map[string]any{"dm_channel_id": channelID, "dm_message_id": messageID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("recipient not found: %d", recipientID)
	}
	return nil
}

// SetDeliveryError records a failed private-notification send
func (s *TicketStorage) SetDeliveryError(recipientID uint, msg string) error {
	res := s.db.Model(&model.TicketRecipient{}).
		Where("id = ?", recipientID).
		Update("delivery_error", msg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("recipient not found: %d", recipientID)
	}
	return nil
}

// SetLastRemindAt advances the reminder watermark
func (s *TicketStorage) SetLastRemindAt(ticketID uint, at time.Time) error {
	res := s.db.Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Update("last_remind_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("ticket not found: %d", ticketID)
	}
	return nil
}

// MarkDueNotified sets the idempotency flag for the overdue notice
func (s *TicketStorage) MarkDueNotified(ticketID uint) error {
	res := s.db.Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Update("due_notified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("ticket not found: %d", ticketID)
	}
	return nil
}

// CloseRecipients bulk-transitions all pending recipients of the ticket to
// the passed terminal status and returns the affected rows.
func (s *TicketStorage) CloseRecipients(ticketID uint, to model.RecipientStatus) (
	[]model.TicketRecipient, error,
) {
	if !model.StatusPending.CanTransition(to) || !to.Terminal() {
		return nil, model.InvalidTransitionErrorFmt("cannot close recipients to status %s", to)
	}
	var closed []model.TicketRecipient
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Where(
				"ticket_id = ? AND status = ?", ticketID, model.StatusPending,
			).Find(&closed).Error; err != nil {
				return err
			}
			if len(closed) == 0 {
				return nil
			}
			if err := tx.Model(&model.TicketRecipient{}).
				Where("ticket_id = ? AND status = ?", ticketID, model.StatusPending).
				Update("status", to).Error; err != nil {
				return err
			}
			for i := range closed {
				closed[i].Status = to
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// Delete removes the ticket and its recipient rows
func (s *TicketStorage) Delete(ticketID uint) error {
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Where("ticket_id = ?", ticketID).
				Delete(&model.TicketRecipient{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&model.Ticket{}, ticketID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return model.NotFoundErrorFmt("ticket not found: %d", ticketID)
			}
			return nil
		},
	)
}
