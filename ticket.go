package steward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/commkit/steward/internal/messenger"
	"github.com/commkit/steward/storage/model"
)

// dueDateLayout is the calendar-date format accepted by the compose stage.
const dueDateLayout = "2006/01/02"

// Recipient reference prefixes accepted by the selection stage.
const (
	refPrefixUser  = "user:"
	refPrefixRole  = "role:"
	refPrefixGroup = "group:"
)

func (s *Steward) addTicketEndpoints(r fiber.Router) {
	r.Post("/compose", s.handleTicketCompose)
	r.Post("/:token/targets", s.handleTicketTargets)
	r.Post("/:token/commit", s.handleTicketCommit)
	r.Post("/recipient/done", s.handleRecipientDone)
	r.Post("/recipient/undo", s.handleRecipientUndo)
	r.Post("/close", s.handleTicketClose)
}

type composeRequest struct {
	CreatedBy   string `json:"created_by"`
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	DueDate     string `json:"due_date"`
}

// composeEcho mirrors every submitted field back on rejection so the caller
// can re-prompt with the previous input intact.
type composeEcho struct {
	Error string `json:"error"`
	composeRequest
}

// handleTicketCompose opens a new ticket draft. A malformed due date rejects
// the request without persisting anything; the response echoes all submitted
// values verbatim.
func (s *Steward) handleTicketCompose(c *fiber.Ctx) error {
	var req composeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.CreatedBy == "" || req.ChannelID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "created_by and channel_id are required")
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			composeEcho{Error: "title is required", composeRequest: req},
		)
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.ParseInLocation(dueDateLayout, req.DueDate, time.UTC)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(
				composeEcho{
					Error:          "due date must use the YYYY/MM/DD format",
					composeRequest: req,
				},
			)
		}
		dueDate = &parsed
	}

	draft := &model.TicketDraft{
		Token:       uuid.NewString(),
		CreatedBy:   req.CreatedBy,
		ChannelID:   req.ChannelID,
		Stage:       model.DraftStageCompose,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		DueDate:     dueDate,
	}
	if err := s.stores.Drafts.Put(draft); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(draft)
}

// handleTicketTargets resolves the mixed recipient references for a draft
// into a deduplicated, bot-excluded list of subjects.
func (s *Steward) handleTicketTargets(c *fiber.Ctx) error {
	token := c.Params("token")
	var req struct {
		Refs []string `json:"refs"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if len(req.Refs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "refs are required")
	}
	draft, err := s.stores.Drafts.Get(token)
	if err != nil {
		return err
	}

	targets, unresolved, err := s.resolveTargets(c.Context(), req.Refs)
	if err != nil {
		return err
	}
	if len(unresolved) > 0 {
		return fiber.NewError(
			fiber.StatusBadRequest,
			"unresolvable recipient refs: "+strings.Join(unresolved, ", "),
		)
	}
	if len(targets) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no recipients left after resolution")
	}

	draft.Targets = datatypes.NewJSONSlice(targets)
	draft.Stage = model.DraftStageSelected
	if err = s.stores.Drafts.Put(draft); err != nil {
		return err
	}
	return c.JSON(draft)
}

// resolveTargets expands user, role, and group references into subject ids.
// The result is deduplicated and excludes bot accounts.
func (s *Steward) resolveTargets(ctx context.Context, refs []string) (
	targets []string, unresolved []string, err error,
) {
	seen := make(map[string]bool)
	add := func(m messenger.Member) {
		if m.Bot || seen[m.ID] {
			return
		}
		seen[m.ID] = true
		targets = append(targets, m.ID)
	}
	addRole := func(roleID string) error {
		members, err := s.msgr.RoleMembers(ctx, roleID)
		if err != nil {
			return err
		}
		for _, m := range members {
			add(m)
		}
		return nil
	}

	for _, ref := range refs {
		switch {
		case strings.HasPrefix(ref, refPrefixUser):
			member, err := s.msgr.Member(ctx, strings.TrimPrefix(ref, refPrefixUser))
			if err != nil {
				unresolved = append(unresolved, ref)
				continue
			}
			add(*member)
		case strings.HasPrefix(ref, refPrefixRole):
			if err := addRole(strings.TrimPrefix(ref, refPrefixRole)); err != nil {
				unresolved = append(unresolved, ref)
			}
		case strings.HasPrefix(ref, refPrefixGroup):
			group, err := s.stores.RoleGroups.Get(strings.TrimPrefix(ref, refPrefixGroup))
			if err != nil {
				unresolved = append(unresolved, ref)
				continue
			}
			for _, role := range group.Roles {
				if err := addRole(role.RoleID); err != nil {
					unresolved = append(unresolved, ref)
					break
				}
			}
		default:
			unresolved = append(unresolved, ref)
		}
	}
	return targets, unresolved, nil
}

// handleTicketCommit turns a fully-selected draft into a Ticket: the ticket
// and one pending recipient per resolved subject are created in a single
// transaction, the public summary is posted and its refs recorded, and each
// recipient gets a private notification. A failed private send never rolls
// the ticket back; the failure is recorded on the recipient row instead.
func (s *Steward) handleTicketCommit(c *fiber.Ctx) error {
	token := c.Params("token")
	draft, err := s.stores.Drafts.Get(token)
	if err != nil {
		return err
	}
	if draft.Stage != model.DraftStageSelected || len(draft.Targets) == 0 {
		return fiber.NewError(fiber.StatusConflict, "draft has no resolved recipients yet")
	}
	ctx := c.Context()

	ticket := &model.Ticket{
		ChannelID:   draft.ChannelID,
		CreatedBy:   draft.CreatedBy,
		Title:       draft.Title,
		Description: draft.Description,
		URL:         draft.URL,
		DueDate:     draft.DueDate,
	}
	for _, subjectID := range draft.Targets {
		ticket.Recipients = append(
			ticket.Recipients,
			model.TicketRecipient{SubjectID: subjectID, Status: model.StatusPending},
		)
	}

	if err = s.stores.Tickets.Create(ticket); err != nil {
		return err
	}

	// The ticket row exists before the summary post so a failed insert never
	// leaves an orphaned summary in the channel.
	summary, err := s.msgr.SendChannel(ctx, draft.ChannelID, summaryContent(ticket, "Staff request"))
	if err != nil {
		if delErr := s.stores.Tickets.Delete(ticket.ID); delErr != nil {
			log.WithError(delErr).Error("could not remove ticket after failed summary post")
		}
		return err
	}
	ticket.SummaryMessageID = summary.MessageID
	ticket.ChannelID = summary.ChannelID
	if err = s.stores.Tickets.SetSummaryRef(ticket.ID, summary.ChannelID, summary.MessageID); err != nil {
		return err
	}

	for i := range ticket.Recipients {
		recipient := &ticket.Recipients[i]
		ref, err := s.msgr.SendDirect(
			ctx, recipient.SubjectID, dmContent(ticket),
		)
		if err != nil {
			log.WithError(err).WithField("subject", recipient.SubjectID).
				Warn("could not deliver private notification")
			if err = s.stores.Tickets.SetDeliveryError(recipient.ID, err.Error()); err != nil {
				log.WithError(err).Error("could not record delivery failure")
			}
			continue
		}
		if err = s.stores.Tickets.SetRecipientDM(recipient.ID, ref.ChannelID, ref.MessageID); err != nil {
			log.WithError(err).Error("could not record private notification ref")
		}
	}

	if err = s.stores.Drafts.Delete(token); err != nil {
		log.WithError(err).Warn("could not delete committed draft")
	}

	created, err := s.stores.Tickets.Get(ticket.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// handleRecipientDone marks the recipient owning the passed private
// notification as done, rewrites both the private notification and the
// public summary, and announces completion when no pending recipients
// remain.
func (s *Steward) handleRecipientDone(c *fiber.Ctx) error {
	return s.changeRecipientStatus(c, model.StatusDone)
}

// handleRecipientUndo reverses a done recipient back to pending. A completion
// announcement that was already posted is not retracted.
func (s *Steward) handleRecipientUndo(c *fiber.Ctx) error {
	return s.changeRecipientStatus(c, model.StatusPending)
}

func (s *Steward) changeRecipientStatus(c *fiber.Ctx, to model.RecipientStatus) error {
	var req struct {
		MessageID string `json:"message_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	// Recipients whose private send failed carry an empty dm_message_id, so
	// an empty ref must not be treated as a lookup key.
	if req.MessageID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message_id is required")
	}
	ctx := c.Context()

	recipient, err := s.stores.Tickets.FindRecipientByDMRef(req.MessageID)
	if err != nil {
		return err
	}
	if err = s.stores.Tickets.SetRecipientStatus(recipient.ID, to); err != nil {
		return err
	}
	ticket, err := s.stores.Tickets.Get(recipient.TicketID)
	if err != nil {
		return err
	}

	dmRef := messenger.MessageRef{ChannelID: recipient.DMChannelID, MessageID: recipient.DMMessageID}
	footer := "Status: pending"
	if to == model.StatusDone {
		footer = "Status: done"
	}
	if err = s.msgr.EditMessage(ctx, dmRef, dmContent(ticket)+"\n\n"+footer); err != nil {
		log.WithError(err).Warn("could not rewrite private notification")
	}

	s.rewriteSummary(ctx, ticket, "Staff request")

	if to == model.StatusDone && len(ticket.PendingRecipients()) == 0 {
		summaryRef := messenger.MessageRef{ChannelID: ticket.ChannelID, MessageID: ticket.SummaryMessageID}
		_, err = s.msgr.Reply(
			ctx, summaryRef,
			messenger.Mention(ticket.CreatedBy)+" all recipients have completed this request",
		)
		if err != nil {
			log.WithError(err).Warn("could not post completion announcement")
		}
	}
	return c.JSON(ticket)
}

// handleTicketClose closes the ticket owning the passed summary message,
// expiring (reason "deadline") or canceling (reason "cancel") every pending
// recipient.
func (s *Steward) handleTicketClose(c *fiber.Ctx) error {
	var req struct {
		MessageID string `json:"message_id"`
		Reason    string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.MessageID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message_id is required")
	}
	cancel := false
	switch req.Reason {
	case "deadline":
	case "cancel":
		cancel = true
	default:
		return fiber.NewError(fiber.StatusBadRequest, "reason must be deadline or cancel")
	}
	ticket, err := s.stores.Tickets.FindBySummaryRef(req.MessageID)
	if err != nil {
		return err
	}
	if err = s.CloseTicket(c.Context(), ticket.ID, cancel); err != nil {
		return err
	}
	closed, err := s.stores.Tickets.Get(ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(closed)
}

// CloseTicket bulk-transitions all pending recipients of the ticket to a
// terminal status, rewrites their private notifications, and terminalizes
// the public summary. Per-recipient notification failures never abort the
// remaining recipients.
func (s *Steward) CloseTicket(ctx context.Context, ticketID uint, cancel bool) error {
	to := model.StatusExpired
	headline := "[Closed] Staff request"
	footer := "This request has been closed"
	if cancel {
		to = model.StatusCanceled
		headline = "[Canceled] Staff request"
		footer = "This request has been canceled"
	}

	closed, err := s.stores.Tickets.CloseRecipients(ticketID, to)
	if err != nil {
		return err
	}
	ticket, err := s.stores.Tickets.Get(ticketID)
	if err != nil {
		return err
	}

	for _, recipient := range closed {
		if recipient.DMMessageID == "" {
			continue
		}
		dmRef := messenger.MessageRef{
			ChannelID: recipient.DMChannelID,
			MessageID: recipient.DMMessageID,
		}
		if err := s.msgr.EditMessage(ctx, dmRef, dmContent(ticket)+"\n\n"+footer); err != nil {
			log.WithError(err).WithField("subject", recipient.SubjectID).
				Warn("could not rewrite private notification on close")
		}
	}

	s.rewriteSummary(ctx, ticket, headline)
	return nil
}

func (s *Steward) rewriteSummary(ctx context.Context, ticket *model.Ticket, headline string) {
	summaryRef := messenger.MessageRef{
		ChannelID: ticket.ChannelID,
		MessageID: ticket.SummaryMessageID,
	}
	if err := s.msgr.EditMessage(ctx, summaryRef, summaryContent(ticket, headline)); err != nil {
		log.WithError(err).Warn("could not rewrite ticket summary")
	}
}

// summaryContent renders the public summary for a ticket: the request
// details followed by one line per status that has recipients.
func summaryContent(t *model.Ticket, headline string) string {
	lines := []string{
		"## " + headline,
		"Created by " + messenger.Mention(t.CreatedBy),
		"",
		"- Title: " + t.Title,
		"- Description: " + orUnset(t.Description),
		"- URL: " + orUnset(t.URL),
		"- Due: " + formatDueDate(t.DueDate),
	}
	for _, status := range []model.RecipientStatus{
		model.StatusPending, model.StatusDone, model.StatusExpired, model.StatusCanceled,
	} {
		recipients := t.RecipientsByStatus(status)
		if len(recipients) == 0 {
			continue
		}
		mentions := make([]string, len(recipients))
		for i, r := range recipients {
			mentions[i] = messenger.Mention(r.SubjectID)
		}
		lines = append(
			lines,
			fmt.Sprintf("- %s (%d): %s", status, len(recipients), strings.Join(mentions, " ")),
		)
	}
	return strings.Join(lines, "\n")
}

// dmContent renders the private notification for a ticket recipient.
func dmContent(t *model.Ticket) string {
	return strings.Join(
		[]string{
			"## Staff request",
			messenger.Mention(t.CreatedBy) + " asks for your confirmation.",
			"",
			"- Title: " + t.Title,
			"- Description: " + orUnset(t.Description),
			"- URL: " + orUnset(t.URL),
			"- Due: " + formatDueDate(t.DueDate),
		}, "\n",
	)
}

func orUnset(v string) string {
	if v == "" {
		return "unset"
	}
	return v
}

func formatDueDate(d *time.Time) string {
	if d == nil {
		return "unset"
	}
	return d.Format(dueDateLayout)
}
