package staffapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/commkit/steward/storage/model"
)

// registerGrants wires handlers using the GrantStore abstraction.
func registerGrants(r fiber.Router, grants model.GrantStore, svc Service) {
	g := r.Group("/grants")

	g.Get("/", func(c *fiber.Ctx) error {
		list, err := grants.List()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(list)
	})

	g.Get("/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid grant id"))
		}
		grant, err := grants.Get(uint(id))
		if err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("grant not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(grant)
	})

	// DELETE revokes the privilege immediately and removes the row.
	g.Delete("/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid grant id"))
		}
		grant, err := grants.Get(uint(id))
		if err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("grant not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		if err = svc.RevokeGrant(c.Context(), *grant); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(errServer(err.Error()))
		}
		if err = grants.Remove(grant.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
