package steward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/commkit/steward/internal/gateway"
	"github.com/commkit/steward/internal/messenger"
	"github.com/commkit/steward/storage/model"
)

const (
	siteListCacheKey    = "delegation:sites"
	siteListCachePeriod = 5 * time.Minute
)

var panelContent = strings.Join(
	[]string{
		"## Privilege escalation panel",
		"To obtain elevated privileges on the wiki, use the request endpoint below.",
		"",
		"- Moderator or admin is selected automatically from your membership level",
		"- Every grant and revocation is recorded",
		"- Privileges are revoked automatically after the configured period",
		"",
		"- **If staff consensus for this action has not been established yet, start a vote first**",
	}, "\n",
)

func (s *Steward) addDelegationEndpoints(r fiber.Router) {
	r.Post("/panel", s.handleDelegationPanel)
	r.Post("/request", s.handleDelegationRequest)
	r.Post("/select", s.handleDelegationSelect)
	r.Post("/revoke", s.handleDelegationRevoke)
}

// handleDelegationPanel posts the escalation panel to the passed channel, or
// to every channel registered for the delegation purpose.
func (s *Steward) handleDelegationPanel(c *fiber.Ctx) error {
	var req struct {
		ChannelID string `json:"channel_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	channels := []string{req.ChannelID}
	if req.ChannelID == "" {
		registered, err := s.stores.NotifyChannels.List(model.NotifyPurposeDelegation)
		if err != nil {
			return err
		}
		if len(registered) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "no delegation channels registered")
		}
		channels = channels[:0]
		for _, nc := range registered {
			channels = append(channels, nc.ChannelID)
		}
	}
	var refs []messenger.MessageRef
	for _, channelID := range channels {
		ref, err := s.msgr.SendChannel(c.Context(), channelID, panelContent)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	if err := s.stores.KV.Set(
		model.KeyValueScopeDelegation, model.KeyValueKeyPanel, refs,
	); err != nil {
		log.WithError(err).Warn("could not persist panel refs")
	}
	return c.Status(fiber.StatusCreated).JSON(refs)
}

// handleDelegationRequest returns the selectable sites for the requesting user.
func (s *Steward) handleDelegationRequest(c *fiber.Ctx) error {
	sites, err := s.listSites(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(sites)
}

func (s *Steward) listSites(ctx context.Context) ([]gateway.Site, error) {
	var sites []gateway.Site
	found, err := s.lookups.Get(ctx, siteListCacheKey, &sites)
	if err != nil {
		log.WithError(err).Warn("site list cache lookup failed")
	}
	if found {
		return sites, nil
	}
	sites, err = s.membership.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	if err = s.lookups.Set(ctx, siteListCacheKey, sites, siteListCachePeriod); err != nil {
		log.WithError(err).Warn("site list cache store failed")
	}
	return sites, nil
}

// handleDelegationSelect performs the actual escalation: it resolves the
// user's linked wiki accounts, picks one with at least moderator standing on
// the chosen site, grants the matching tier, posts the notice carrying the
// manual revoke reference, and enqueues the timed revocation.
func (s *Steward) handleDelegationSelect(c *fiber.Ctx) error {
	var req struct {
		SubjectID string `json:"subject_id"`
		ChannelID string `json:"channel_id"`
		SiteID    int64  `json:"site_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.SubjectID == "" || req.ChannelID == "" || req.SiteID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "subject_id, channel_id and site_id are required")
	}
	ctx := c.Context()

	if _, err := s.stores.Grants.FindActive(req.SubjectID, req.SiteID); err == nil {
		return model.AlreadyExistsErrorFmt(
			"an active grant already exists for subject %s on site %d", req.SubjectID, req.SiteID,
		)
	}

	accounts, err := s.linkedAccounts(ctx, req.SubjectID)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no linked wiki account for this user")
	}

	account, level := s.pickPrivilegedAccount(ctx, accounts, req.SiteID)
	if account == nil {
		return fiber.NewError(
			fiber.StatusForbidden,
			"none of the linked wiki accounts holds sufficient standing on this site",
		)
	}

	grantedLevel := model.LevelModerator
	if level >= gateway.PermissionAdmin {
		grantedLevel = model.LevelAdmin
	}
	if err = s.membership.ChangePrivilege(
		ctx, req.SiteID, account.ID, gateway.GrantAction(grantedLevel),
	); err != nil {
		return err
	}

	siteName := s.siteName(ctx, req.SiteID)
	notice, err := s.msgr.SendChannel(
		ctx, req.ChannelID, strings.Join(
			[]string{
				"### Wiki privileges elevated",
				fmt.Sprintf("> User: %s (%s)", messenger.Mention(req.SubjectID), account.Username),
				fmt.Sprintf("> Site: %s", siteName),
				fmt.Sprintf("> Level: %s", grantedLevel),
			}, "\n",
		),
	)
	if err != nil {
		// The privilege is live but the notice failed; the grant is still
		// enqueued so the scanner revokes it.
		log.WithError(err).Error("could not post escalation notice")
	}

	grant := &model.DelegationGrant{
		SubjectID:       req.SubjectID,
		AccountID:       account.ID,
		SiteID:          req.SiteID,
		GrantedLevel:    grantedLevel,
		NotifyChannelID: notice.ChannelID,
		NotifyMessageID: notice.MessageID,
		ExpiresAt:       time.Now().Add(s.grantTTL(req.SiteID)),
	}
	if err = s.stores.Grants.Enqueue(grant); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(grant)
}

func (s *Steward) linkedAccounts(ctx context.Context, subjectID string) ([]gateway.LinkedAccount, error) {
	cacheKey := "delegation:linked:" + subjectID
	var accounts []gateway.LinkedAccount
	found, err := s.lookups.Get(ctx, cacheKey, &accounts)
	if err != nil {
		log.WithError(err).Warn("linked account cache lookup failed")
	}
	if found {
		return accounts, nil
	}
	linked, err := s.linker.AccountList(ctx, []string{subjectID})
	if err != nil {
		return nil, err
	}
	accounts = linked[subjectID]
	// An empty result is not cached; a user who links an account right after
	// a failed attempt should not have to wait out the cache period.
	if len(accounts) > 0 {
		if err = s.lookups.Set(ctx, cacheKey, accounts, siteListCachePeriod); err != nil {
			log.WithError(err).Warn("linked account cache store failed")
		}
	}
	return accounts, nil
}

// pickPrivilegedAccount returns the first linked account holding at least
// moderator standing on the site, together with its level. Accounts that
// cannot be fetched are skipped.
func (s *Steward) pickPrivilegedAccount(
	ctx context.Context, accounts []gateway.LinkedAccount, siteID int64,
) (*gateway.Account, gateway.PermissionLevel) {
	for _, linked := range accounts {
		account, err := s.membership.GetUser(ctx, linked.ID)
		if err != nil {
			log.WithError(err).WithField("account", linked.ID).Debug("skipping unfetchable account")
			continue
		}
		for _, m := range account.Memberships {
			if m.SiteID == siteID && m.Level >= gateway.PermissionModerator {
				return account, m.Level
			}
		}
	}
	return nil, 0
}

func (s *Steward) siteName(ctx context.Context, siteID int64) string {
	sites, err := s.listSites(ctx)
	if err != nil {
		return fmt.Sprintf("site %d", siteID)
	}
	for _, site := range sites {
		if site.ID == siteID {
			return strings.ToUpper(site.Name)
		}
	}
	return fmt.Sprintf("site %d", siteID)
}

// grantTTL returns the delegation TTL for the site, honoring a per-site
// override stored in the key-value table.
func (s *Steward) grantTTL(siteID int64) time.Duration {
	var seconds int
	found, err := s.stores.KV.GetAs(
		model.KeyValueScopeDelegation,
		fmt.Sprintf("%s:%d", model.KeyValueKeyGrantTTL, siteID),
		&seconds,
	)
	if err != nil {
		log.WithError(err).Warn("could not read grant ttl override")
	}
	if found && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return s.conf.Delegation.GrantTTL
}

// handleDelegationRevoke locates a grant via its notice message and revokes
// it immediately instead of waiting for expiry.
func (s *Steward) handleDelegationRevoke(c *fiber.Ctx) error {
	var req struct {
		ChannelID string `json:"channel_id"`
		MessageID string `json:"message_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	// A grant whose notice send failed has empty refs; never look those up.
	if req.ChannelID == "" || req.MessageID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "channel_id and message_id are required")
	}
	ctx := c.Context()
	grant, err := s.stores.Grants.FindByNotifyRef(req.ChannelID, req.MessageID)
	if err != nil {
		return err
	}
	if err = s.RevokeGrant(ctx, *grant); err != nil {
		return err
	}
	if err = s.stores.Grants.Remove(grant.ID); err != nil {
		return err
	}
	notice := messenger.MessageRef{ChannelID: grant.NotifyChannelID, MessageID: grant.NotifyMessageID}
	if err = s.msgr.EditMessage(ctx, notice, "Privileges revoked"); err != nil {
		log.WithError(err).Warn("could not rewrite revocation notice")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RevokeGrant removes the granted privilege on the wiki side. An account that
// no longer holds the privilege is treated as already revoked, not an error.
func (s *Steward) RevokeGrant(ctx context.Context, g model.DelegationGrant) error {
	err := s.membership.ChangePrivilege(
		ctx, g.SiteID, g.AccountID, gateway.RevokeAction(g.GrantedLevel),
	)
	if err != nil && !gateway.IsNotPrivileged(err) {
		return err
	}
	return nil
}
