// Package staffapi exposes the management REST API: listing and revoking
// delegation grants, inspecting and closing tickets, and maintaining role
// groups and notification channels.
package staffapi

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/commkit/steward/storage/model"
)

// Service is the slice of the steward service the staff API needs: the
// operations that go beyond plain storage access.
type Service interface {
	// RevokeGrant removes the granted privilege on the wiki side.
	RevokeGrant(ctx context.Context, g model.DelegationGrant) error
	// CloseTicket expires (cancel=false) or cancels (cancel=true) a ticket.
	CloseTicket(ctx context.Context, ticketID uint, cancel bool) error
}

// ErrorResponse is the JSON error body returned by the staff API.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func errServer(desc string) ErrorResponse {
	return ErrorResponse{Error: "server_error", Description: desc}
}

func errInvalidRequest(desc string) ErrorResponse {
	return ErrorResponse{Error: "invalid_request", Description: desc}
}

func errNotFound(desc string) ErrorResponse {
	return ErrorResponse{Error: "not_found", Description: desc}
}

// Register mounts all staff API routes under the provided group.
func Register(r fiber.Router, stores model.Backends, svc Service) {
	registerGrants(r, stores.Grants, svc)
	registerTickets(r, stores.Tickets, svc)
	registerRoleGroups(r, stores.RoleGroups)
	registerNotifyChannels(r, stores.NotifyChannels)
}
