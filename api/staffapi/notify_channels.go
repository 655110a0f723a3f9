package staffapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/commkit/steward/storage/model"
)

func registerNotifyChannels(r fiber.Router, channels model.NotifyChannelStore) {
	g := r.Group("/notify-channels")

	g.Get("/", func(c *fiber.Ctx) error {
		list, err := channels.List(c.Query("purpose"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(list)
	})

	type registerReq struct {
		Purpose   string `json:"purpose"`
		ChannelID string `json:"channel_id"`
	}
	g.Post("/", func(c *fiber.Ctx) error {
		var req registerReq
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid body"))
		}
		if req.Purpose != model.NotifyPurposeDelegation && req.Purpose != model.NotifyPurposeTickets {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("unknown purpose"))
		}
		if req.ChannelID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("channel_id is required"))
		}
		ch, err := channels.Register(req.Purpose, req.ChannelID)
		if err != nil {
			if _, ok := err.(model.AlreadyExistsError); ok {
				return c.Status(fiber.StatusConflict).JSON(errInvalidRequest("channel already registered"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	g.Delete("/:purpose/:channel", func(c *fiber.Ctx) error {
		if err := channels.Remove(c.Params("purpose"), c.Params("channel")); err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("notify channel not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
