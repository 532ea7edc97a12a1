// Package imagehost uploads user images and returns their public URL.
package imagehost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/utils"

	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 * 1024 * 1024

var (
	ErrTooLarge = errors.New("image exceeds 5MB")
	ErrNotImage = errors.New("file is not an image")
)

// Image is an upload candidate.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Host stores an image and returns its public URL.
type Host interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// Validate enforces the size limit and the image/ content type. An empty
// content type is sniffed from the data.
func Validate(img *Image) error {
	if len(img.Data) == 0 {
		return apperr.Invalid("image", "file is empty")
	}
	if len(img.Data) > MaxImageSize {
		return &apperr.ValidationError{Field: "image", Message: ErrTooLarge.Error()}
	}
	if img.ContentType == "" || img.ContentType == "application/octet-stream" {
		img.ContentType = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return &apperr.ValidationError{Field: "image", Message: ErrNotImage.Error()}
	}
	return nil
}

// ObjectStore is the subset of the R2 client used for images.
type ObjectStore interface {
	Upload(ctx context.Context, key string, content []byte, contentType string) error
	ObjectURL(key string) string
}

// R2Host keeps images in the project's own bucket.
type R2Host struct {
	store  ObjectStore
	prefix string
}

func NewR2Host(store ObjectStore, prefix string) *R2Host {
	if prefix == "" {
		prefix = "images"
	}
	return &R2Host{store: store, prefix: prefix}
}

func (h *R2Host) Upload(ctx context.Context, img Image) (string, error) {
	if err := Validate(&img); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(img.Name))
	if ext == "" {
		ext = extensionFor(img.ContentType)
	}
	key := fmt.Sprintf("%s/%s%s", h.prefix, uuid.New().String(), ext)
	if err := h.store.Upload(ctx, key, img.Data, img.ContentType); err != nil {
		return "", err
	}
	return h.store.ObjectURL(key), nil
}

func extensionFor(contentType string) string {
	for _, ext := range []string{".jpg", ".png", ".gif", ".webp", ".svg"} {
		if utils.ContentTypeFor("x"+ext) == contentType {
			return ext
		}
	}
	return ""
}
