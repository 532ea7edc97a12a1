package http

import (
	"log"

	"biblioteca-mistica/internal/service"
	"biblioteca-mistica/pkg/models"

	"github.com/gofiber/fiber/v2"
)

// ListNotifications returns the newest notifications and the unread count.
func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	list, err := h.notify.List(c.UserContext(), userID)
	if err != nil {
		log.Printf("❌ [NOTIFICATIONS] List for %s failed: %v", userID, err)
		return writeError(c, err)
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return c.JSON(fiber.Map{"notifications": list, "unread": unread, "limit": service.MaxNotifications})
}

// CreateNotification stores a notification addressed to the caller.
func (h *Handler) CreateNotification(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req models.NotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.UserID != nil && *req.UserID != userID {
		log.Printf("[NOTIFICATIONS] ❌ REJECTED | UserID=%s | target=%s", userID, *req.UserID)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: notifications for other users require admin"})
	}
	n, err := h.notify.Create(c.UserContext(), userID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// AdminCreateNotification addresses any user, ignoring their preferences.
func (h *Handler) AdminCreateNotification(c *fiber.Ctx) error {
	var req models.NotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.UserID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}
	n, err := h.notify.Create(c.UserContext(), *req.UserID, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

func (h *Handler) MarkRead(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification id"})
	}
	if err := h.notify.MarkRead(c.UserContext(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	n, err := h.notify.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

func (h *Handler) DeleteNotification(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification id"})
	}
	if err := h.notify.Remove(c.UserContext(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ClearNotifications(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	n, err := h.notify.Clear(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	log.Printf("🧹 [NOTIFICATIONS] Cleared %d notification(s) for %s", n, userID)
	return c.JSON(fiber.Map{"deleted": n})
}

func (h *Handler) GetPreferences(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	prefs, err := h.notify.Preferences(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(prefs)
}

func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req models.NotificationPreferences
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	prefs, err := h.notify.UpdatePreferences(c.UserContext(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(prefs)
}

type deviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *Handler) RegisterDevice(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req deviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.notify.RegisterDevice(c.UserContext(), userID, req.Token, req.Platform); err != nil {
		return writeError(c, err)
	}
	log.Printf("📱 [PUSH] Device registered for user %s (%s)", userID, req.Platform)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) UnregisterDevice(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req deviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.notify.UnregisterDevice(c.UserContext(), userID, req.Token); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
