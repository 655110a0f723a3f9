package steward

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/commkit/steward/internal/messenger"
)

// runExpiryScan is the cron entry point for the expiry scanner. Overlapping
// runs are prevented by the cron chain, so a slow pass delays the next tick
// instead of racing it.
func (s *Steward) runExpiryScan() {
	if err := s.RevokeExpired(context.Background(), time.Now()); err != nil {
		log.WithError(err).Error("expiry scan failed")
	}
}

// RevokeExpired performs one expiry scan pass: every grant whose expiry time
// has passed is revoked on the wiki side, announced best-effort, and removed.
// Revocation failures are logged and do not keep the row alive; a grant is
// never visited twice within one pass, and grants that have not expired are
// never touched.
func (s *Steward) RevokeExpired(ctx context.Context, now time.Time) error {
	expired, err := s.stores.Grants.FindExpired(now)
	if err != nil {
		return err
	}
	for _, grant := range expired {
		entry := log.WithFields(
			log.Fields{
				"grant":   grant.ID,
				"subject": grant.SubjectID,
				"site":    grant.SiteID,
			},
		)

		if err := s.RevokeGrant(ctx, grant); err != nil {
			// Fire and forget: the grant row is removed regardless so a
			// failing gateway cannot wedge the queue.
			entry.WithError(err).Error("revocation failed, removing grant anyway")
		}

		notice := messenger.MessageRef{
			ChannelID: grant.NotifyChannelID,
			MessageID: grant.NotifyMessageID,
		}
		if notice.IsZero() {
			entry.Warn("grant has no notice reference, skipping completion notice")
		} else {
			_, err := s.msgr.Reply(
				ctx, notice,
				messenger.Mention(grant.SubjectID)+" privileges removed",
			)
			if err != nil {
				entry.WithError(err).Warn("could not post completion notice")
			} else if err = s.msgr.DeleteMessage(ctx, notice); err != nil {
				// The stale escalation notice is cleaned up so the panel
				// channel does not accumulate dead revoke buttons.
				entry.WithError(err).Debug("could not delete escalation notice")
			}
		}

		if err := s.stores.Grants.Remove(grant.ID); err != nil {
			entry.WithError(err).Error("could not remove grant row")
			continue
		}
		entry.WithField("level", grant.GrantedLevel).Info("revoked expired grant")
	}
	return nil
}
