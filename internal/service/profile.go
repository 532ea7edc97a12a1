package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/imagehost"
	"biblioteca-mistica/internal/metrics"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// MyPostsLimit is how many of the user's own posts the profile shows.
const MyPostsLimit = 10

const (
	maxDisplayNameLength = 100
	maxBioLength         = 500
)

type ProfileStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.User, error)
	ListPostsByAuthor(ctx context.Context, authorID uuid.UUID, kind models.PostKind, limit int) ([]models.Post, error)
}

type ProfileService struct {
	store  ProfileStore
	images imagehost.Host
}

func NewProfileService(store ProfileStore, images imagehost.Host) *ProfileService {
	return &ProfileService{store: store, images: images}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.User, error) {
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" {
			return nil, apperr.Invalid("display_name", "name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, apperr.Invalid("display_name", "name must be at most %d characters", maxDisplayNameLength)
		}
	}
	if upd.Bio != nil && utf8.RuneCountInString(*upd.Bio) > maxBioLength {
		return nil, apperr.Invalid("bio", "bio must be at most %d characters", maxBioLength)
	}
	return s.store.UpdateProfile(ctx, userID, upd)
}

// UploadImage stores an image on the configured host.
func (s *ProfileService) UploadImage(ctx context.Context, userID uuid.UUID, img imagehost.Image) (string, error) {
	if s.images == nil {
		return "", fmt.Errorf("image uploads are not configured")
	}
	url, err := s.images.Upload(ctx, img)
	if err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		return "", err
	}
	metrics.ImageUploads.WithLabelValues("ok").Inc()
	log.Printf("✅ [UPLOAD] User %s uploaded %s (%d bytes)", userID, url, len(img.Data))
	return url, nil
}

// UploadAvatar uploads the image and points the profile at it.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, img imagehost.Image) (*models.User, error) {
	url, err := s.UploadImage(ctx, userID, img)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateProfile(ctx, userID, models.ProfileUpdate{AvatarURL: &url})
}

// MyPosts returns the user's latest community posts.
func (s *ProfileService) MyPosts(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	return s.store.ListPostsByAuthor(ctx, userID, models.PostKindCommunity, MyPostsLimit)
}
