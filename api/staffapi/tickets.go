package staffapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/commkit/steward/storage/model"
)

// registerTickets wires handlers using the TicketStore abstraction.
func registerTickets(r fiber.Router, tickets model.TicketStore, svc Service) {
	g := r.Group("/tickets")

	g.Get("/", func(c *fiber.Ctx) error {
		list, err := tickets.List()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(list)
	})

	g.Get("/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid ticket id"))
		}
		ticket, err := tickets.Get(uint(id))
		if err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("ticket not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(ticket)
	})

	type closeReq struct {
		Cancel bool `json:"cancel"`
	}
	g.Post("/:id/close", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid ticket id"))
		}
		var req closeReq
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid body"))
		}
		if err := svc.CloseTicket(c.Context(), uint(id), req.Cancel); err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("ticket not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		ticket, err := tickets.Get(uint(id))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(ticket)
	})

	g.Delete("/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid ticket id"))
		}
		if err := tickets.Delete(uint(id)); err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("ticket not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
