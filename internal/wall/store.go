// Package wall keeps the local copy of a post wall (the publisher feed or the
// member community) and applies the viewer's changes to it optimistically.
package wall

import (
	"context"

	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// Store is the remote side of a wall. Every call acts as the signed-in
// viewer.
type Store interface {
	ListPosts(ctx context.Context, kind models.PostKind) ([]models.Post, error)
	CreatePost(ctx context.Context, kind models.PostKind, req *models.PostRequest) (*models.Post, error)
	DeletePost(ctx context.Context, kind models.PostKind, postID uuid.UUID) error
	HasLiked(ctx context.Context, kind models.PostKind, postID uuid.UUID) (bool, error)
	Like(ctx context.Context, kind models.PostKind, postID uuid.UUID) error
	Unlike(ctx context.Context, kind models.PostKind, postID uuid.UUID) error
	ListComments(ctx context.Context, kind models.PostKind, postID uuid.UUID) ([]models.Comment, error)
	AddComment(ctx context.Context, kind models.PostKind, postID uuid.UUID, body string) (*models.Comment, error)
}
