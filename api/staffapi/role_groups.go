package staffapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/commkit/steward/storage/model"
)

// registerRoleGroups wires handlers using the RoleGroupStore abstraction.
func registerRoleGroups(r fiber.Router, groups model.RoleGroupStore) {
	g := r.Group("/role-groups")

	g.Get("/", func(c *fiber.Ctx) error {
		list, err := groups.List()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(list)
	})

	type createReq struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		CreatedBy   string `json:"created_by"`
	}
	g.Post("/", func(c *fiber.Ctx) error {
		var req createReq
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid body"))
		}
		if req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("name is required"))
		}
		group, err := groups.Create(req.Name, req.Description, req.CreatedBy)
		if err != nil {
			if _, ok := err.(model.AlreadyExistsError); ok {
				return c.Status(fiber.StatusConflict).JSON(errInvalidRequest("role group already exists"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.Status(fiber.StatusCreated).JSON(group)
	})

	g.Get("/:name", func(c *fiber.Ctx) error {
		group, err := groups.Get(c.Params("name"))
		if err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("role group not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.JSON(group)
	})

	g.Delete("/:name", func(c *fiber.Ctx) error {
		if err := groups.Delete(c.Params("name")); err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("role group not found"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	type roleReq struct {
		RoleID string `json:"role_id"`
	}
	g.Post("/:name/roles", func(c *fiber.Ctx) error {
		var req roleReq
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("invalid body"))
		}
		if req.RoleID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidRequest("role_id is required"))
		}
		if err := groups.AddRole(c.Params("name"), req.RoleID); err != nil {
			switch err.(type) {
			case model.NotFoundError:
				return c.Status(fiber.StatusNotFound).JSON(errNotFound("role group not found"))
			case model.AlreadyExistsError:
				return c.Status(fiber.StatusConflict).JSON(errInvalidRequest("role already in group"))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	g.Delete("/:name/roles/:role", func(c *fiber.Ctx) error {
		if err := groups.RemoveRole(c.Params("name"), c.Params("role")); err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				return c.Status(fiber.StatusNotFound).JSON(errNotFound(err.Error()))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error()))
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
