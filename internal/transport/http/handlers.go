// internal/transport/http/handlers.go
package http

import (
	"errors"
	"log"
	"strconv"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/imagehost"
	"biblioteca-mistica/internal/middleware"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// BodyLimit leaves room for a full-size image plus multipart framing.
const BodyLimit = imagehost.MaxImageSize + 1<<20

const defaultHeartbeat = 30 * time.Second

// Services bundles what the handlers call into.
type Services struct {
	Auth     *service.AuthService
	Content  *service.ContentService
	Posts    *service.PostService
	Notify   *service.NotifyService
	Profile  *service.ProfileService
	Realtime realtime.Subscriber
}

type Handler struct {
	auth      *service.AuthService
	content   *service.ContentService
	posts     *service.PostService
	notify    *service.NotifyService
	profile   *service.ProfileService
	realtime  realtime.Subscriber
	heartbeat time.Duration
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:      s.Auth,
		content:   s.Content,
		posts:     s.Posts,
		notify:    s.Notify,
		profile:   s.Profile,
		realtime:  s.Realtime,
		heartbeat: defaultHeartbeat,
	}
}

// Register mounts the /v1 API on app.
func (h *Handler) Register(app fiber.Router) {
	v1 := app.Group("/v1")
	authed := middleware.Auth(h.auth)

	v1.Post("/auth/login", h.Login)
	v1.Get("/me", authed, h.Me)

	v1.Get("/modules", authed, h.ListModules)
	v1.Get("/modules/:slug", authed, h.GetModule)
	v1.Get("/banners", authed, h.ListBanners)

	v1.Get("/notifications", authed, h.ListNotifications)
	v1.Post("/notifications", authed, h.CreateNotification)
	v1.Delete("/notifications", authed, h.ClearNotifications)
	v1.Post("/notifications/read-all", authed, h.MarkAllRead)
	v1.Get("/notifications/preferences", authed, h.GetPreferences)
	v1.Put("/notifications/preferences", authed, h.UpdatePreferences)
	v1.Post("/notifications/:id/read", authed, h.MarkRead)
	v1.Delete("/notifications/:id", authed, h.DeleteNotification)
	v1.Post("/devices", authed, h.RegisterDevice)
	v1.Delete("/devices", authed, h.UnregisterDevice)

	v1.Get("/profile", authed, h.GetProfile)
	v1.Patch("/profile", authed, h.UpdateProfile)
	v1.Post("/profile/avatar", authed, h.UploadAvatar)
	v1.Get("/profile/posts", authed, h.MyPosts)
	v1.Post("/uploads/images", authed, h.UploadImage)

	v1.Get("/realtime", authed, h.Stream)

	// Wall routes last: "/:kind/posts" would otherwise shadow "/profile/posts".
	v1.Get("/:kind/posts", authed, h.ListPosts)
	v1.Post("/:kind/posts", authed, h.CreatePost)
	v1.Delete("/:kind/posts/:id", authed, h.DeletePost)
	v1.Get("/:kind/posts/:id/like", authed, h.GetLike)
	v1.Put("/:kind/posts/:id/like", authed, h.Like)
	v1.Delete("/:kind/posts/:id/like", authed, h.Unlike)
	v1.Get("/:kind/posts/:id/comments", authed, h.ListComments)
	v1.Post("/:kind/posts/:id/comments", authed, h.AddComment)

	admin := v1.Group("/admin", authed, middleware.AdminOnly())
	admin.Post("/notifications", h.AdminCreateNotification)

	log.Println("✅ [ROUTES] Registered /v1 API")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

// writeError maps domain errors to status codes. Anything unrecognised
// goes to the app's error handler as a 500.
func writeError(c *fiber.Ctx, err error) error {
	var verr *apperr.ValidationError
	var locked *apperr.LockedError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Message, "field": verr.Field})
	case errors.As(err, &locked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error":          "module locked",
			"days_remaining": locked.DaysRemaining,
		})
	case errors.Is(err, apperr.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	case errors.Is(err, apperr.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	case errors.Is(err, apperr.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, apperr.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already exists"})
	}
	return err
}

func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusInternalServerError, "user ID not found in context")
	}
	return id, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func getQueryInt(c *fiber.Ctx, key string, def, min, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
