package http

import (
	"log"

	"biblioteca-mistica/internal/service"
	"biblioteca-mistica/pkg/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// wallTarget resolves the caller, the :kind segment and, when present, :id.
func wallTarget(c *fiber.Ctx, withID bool) (uuid.UUID, models.PostKind, uuid.UUID, error) {
	userID, err := callerID(c)
	if err != nil {
		return uuid.Nil, "", uuid.Nil, err
	}
	kind, err := models.ParsePostKind(c.Params("kind"))
	if err != nil {
		return uuid.Nil, "", uuid.Nil, fiber.NewError(fiber.StatusNotFound, "unknown wall")
	}
	if !withID {
		return userID, kind, uuid.Nil, nil
	}
	postID, ok := paramUUID(c, "id")
	if !ok {
		return uuid.Nil, "", uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}
	return userID, kind, postID, nil
}

func (h *Handler) ListPosts(c *fiber.Ctx) error {
	_, kind, _, err := wallTarget(c, false)
	if err != nil {
		return err
	}
	limit := getQueryInt(c, "limit", service.DefaultPostLimit, 1, 200)
	posts, err := h.posts.List(c.UserContext(), kind, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

func (h *Handler) CreatePost(c *fiber.Ctx) error {
	userID, kind, _, err := wallTarget(c, false)
	if err != nil {
		return err
	}
	var req models.PostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	post, err := h.posts.Create(c.UserContext(), userID, kind, &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *Handler) DeletePost(c *fiber.Ctx) error {
	userID, kind, postID, err := wallTarget(c, true)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.UserContext(), userID, kind, postID); err != nil {
		return writeError(c, err)
	}
	log.Printf("🗑️ [POSTS] %s post %s deleted by %s", kind, postID, userID)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) GetLike(c *fiber.Ctx) error {
	userID, kind, postID, err := wallTarget(c, true)
	if err != nil {
		return err
	}
	liked, err := h.posts.HasLiked(c.UserContext(), userID, kind, postID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"liked": liked})
}

// Like answers 409 when the like already exists.
func (h *Handler) Like(c *fiber.Ctx) error {
	userID, kind, postID, err := wallTarget(c, true)
	if err != nil {
		return err
	}
	if err := h.posts.Like(c.UserContext(), userID, kind, postID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Unlike(c *fiber.Ctx) error {
	userID, kind, postID, err := wallTarget(c, true)
	if err != nil {
		return err
	}
	if err := h.posts.Unlike(c.UserContext(), userID, kind, postID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListComments(c *fiber.Ctx) error {
	_, kind, postID, err := wallTarget(c, true)
	if err != nil {
		return err
	}
	comments, err := h.posts.Comments(c.UserContext(), kind, postID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) AddComment(c *fiber.Ctx) error {
	userID, kind, postID, err := wallTarget(c, true)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	comment, err := h.posts.AddComment(c.UserContext(), userID, kind, postID, req.Body)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
