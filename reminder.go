package steward

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/commkit/steward/internal/messenger"
)

// runReminderScan is the cron entry point for the reminder scanner.
func (s *Steward) runReminderScan() {
	if err := s.SendReminders(context.Background(), time.Now()); err != nil {
		log.WithError(err).Error("reminder scan failed")
	}
}

// runDueDateScan is the cron entry point for the due-date scanner.
func (s *Steward) runDueDateScan() {
	if err := s.NotifyOverdue(context.Background(), time.Now()); err != nil {
		log.WithError(err).Error("due-date scan failed")
	}
}

// SendReminders performs one reminder pass: every ticket with at least one
// pending recipient and no due date in the past gets a reminder round once
// the cadence since the last round (or since creation) has elapsed. The
// watermark is advanced before the sends so a crash mid-round cannot cause a
// duplicate round on the next pass.
func (s *Steward) SendReminders(ctx context.Context, now time.Time) error {
	tickets, err := s.stores.Tickets.List()
	if err != nil {
		return err
	}
	now = now.UTC()
	today := truncateToDay(now)

	for i := range tickets {
		ticket := &tickets[i]
		pending := ticket.PendingRecipients()
		if len(pending) == 0 {
			continue
		}
		if ticket.DueDate != nil && ticket.DueDate.UTC().Before(today) {
			continue
		}

		// Stored timestamps without a zone are treated as UTC.
		last := ticket.CreatedAt.UTC()
		if ticket.LastRemindAt != nil {
			last = ticket.LastRemindAt.UTC()
		}
		if now.Before(last.Add(s.conf.Tickets.RemindCadence)) {
			continue
		}

		if err := s.stores.Tickets.SetLastRemindAt(ticket.ID, now); err != nil {
			log.WithError(err).WithField("ticket", ticket.ID).
				Error("could not advance reminder watermark")
			continue
		}

		content := "**A request still needs your attention. Please have a look.**"
		if ticket.DueDate != nil {
			content += "\n> Due: " + ticket.DueDate.Format(dueDateLayout)
		}
		for _, recipient := range pending {
			if recipient.DMMessageID == "" {
				log.WithField("subject", recipient.SubjectID).
					Warn("pending recipient has no private notification to remind on")
				continue
			}
			dmRef := messenger.MessageRef{
				ChannelID: recipient.DMChannelID,
				MessageID: recipient.DMMessageID,
			}
			if _, err := s.msgr.Reply(ctx, dmRef, content); err != nil {
				log.WithError(err).WithField("subject", recipient.SubjectID).
					Warn("could not send reminder")
				continue
			}
			log.WithFields(
				log.Fields{"ticket": ticket.ID, "subject": recipient.SubjectID},
			).Info("sent reminder")
		}
	}
	return nil
}

// NotifyOverdue performs one due-date pass: every ticket whose due date lies
// strictly before today and that still has pending recipients gets exactly
// one overdue notice to its creator. The per-ticket flag makes repeated
// passes produce no further notices.
func (s *Steward) NotifyOverdue(ctx context.Context, now time.Time) error {
	today := truncateToDay(now.UTC())
	overdue, err := s.stores.Tickets.ListOverdue(today)
	if err != nil {
		return err
	}

	for i := range overdue {
		ticket := &overdue[i]
		if len(ticket.PendingRecipients()) == 0 {
			continue
		}

		summaryRef := messenger.MessageRef{
			ChannelID: ticket.ChannelID,
			MessageID: ticket.SummaryMessageID,
		}
		_, err := s.msgr.Reply(
			ctx, summaryRef,
			messenger.Mention(ticket.CreatedBy)+" this request has passed its due date",
		)
		if err != nil {
			// Without the flag set, the next pass retries the notice.
			log.WithError(err).WithField("ticket", ticket.ID).
				Warn("could not post overdue notice")
			continue
		}
		if err := s.stores.Tickets.MarkDueNotified(ticket.ID); err != nil {
			log.WithError(err).WithField("ticket", ticket.ID).
				Error("could not set overdue flag")
			continue
		}
		log.WithFields(
			log.Fields{"ticket": ticket.ID, "title": ticket.Title},
		).Info("notified creator of passed due date")
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
