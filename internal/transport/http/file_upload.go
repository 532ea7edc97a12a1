// internal/transport/http/file_upload.go
package http

import (
	"fmt"
	"io"
	"log"

	"biblioteca-mistica/internal/imagehost"
	"biblioteca-mistica/internal/service"
	"biblioteca-mistica/pkg/models"

	"github.com/gofiber/fiber/v2"
)

// readImage loads the multipart field "image". Size and type are checked by
// the image host.
func readImage(c *fiber.Ctx) (imagehost.Image, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return imagehost.Image{}, fiber.NewError(fiber.StatusBadRequest, "multipart field 'image' is required")
	}
	if fileHeader.Size > imagehost.MaxImageSize {
		return imagehost.Image{}, fiber.NewError(fiber.StatusBadRequest, imagehost.ErrTooLarge.Error())
	}
	file, err := fileHeader.Open()
	if err != nil {
		return imagehost.Image{}, fmt.Errorf("failed to open file %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, imagehost.MaxImageSize+1))
	if err != nil {
		return imagehost.Image{}, fmt.Errorf("failed to read file %s: %w", fileHeader.Filename, err)
	}
	log.Printf("[UPLOAD] Received %s (%s, %d bytes)", fileHeader.Filename, fileHeader.Header.Get("Content-Type"), len(content))
	return imagehost.Image{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        content,
	}, nil
}

// UploadImage stores an image for a post and returns its public URL.
func (h *Handler) UploadImage(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	img, err := readImage(c)
	if err != nil {
		return err
	}
	url, err := h.profile.UploadImage(c.UserContext(), userID, img)
	if err != nil {
		log.Printf("[UPLOAD] ❌ Image upload failed for %s: %v", userID, err)
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

func (h *Handler) UploadAvatar(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	img, err := readImage(c)
	if err != nil {
		return err
	}
	user, err := h.profile.UploadAvatar(c.UserContext(), userID, img)
	if err != nil {
		log.Printf("[UPLOAD] ❌ Avatar upload failed for %s: %v", userID, err)
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	user, err := h.profile.Get(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req models.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	user, err := h.profile.Update(c.UserContext(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) MyPosts(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	posts, err := h.profile.MyPosts(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts, "limit": service.MyPostsLimit})
}
