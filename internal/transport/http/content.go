package http

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListModules(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	modules, err := h.content.Catalog(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"modules": modules})
}

// GetModule answers 423 with days_remaining while the module is gated.
func (h *Handler) GetModule(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	module, err := h.content.Module(c.UserContext(), userID, c.Params("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(module)
}

func (h *Handler) ListBanners(c *fiber.Ctx) error {
	banners, err := h.content.Banners(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"banners": banners})
}
