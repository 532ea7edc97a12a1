// pkg/models/posts.go
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"biblioteca-mistica/internal/apperr"

	"github.com/google/uuid"
)

// PostKind separates the publisher feed from the member community wall.
type PostKind string

const (
	PostKindFeed      PostKind = "feed"
	PostKindCommunity PostKind = "community"
)

// ParsePostKind validates a kind taken from a URL or flag.
func ParsePostKind(s string) (PostKind, error) {
	switch PostKind(s) {
	case PostKindFeed, PostKindCommunity:
		return PostKind(s), nil
	}
	return "", fmt.Errorf("unknown post kind %q", s)
}

// FeedPostType tags feed posts.
type FeedPostType string

const (
	FeedPostInfo    FeedPostType = "info"
	FeedPostWarning FeedPostType = "warning"
	FeedPostUpdate  FeedPostType = "update"
)

func (t FeedPostType) Valid() bool {
	switch t {
	case FeedPostInfo, FeedPostWarning, FeedPostUpdate:
		return true
	}
	return false
}

const (
	MaxFeedTitleLength     = 100
	MaxFeedBodyLength      = 1000
	MaxCommunityBodyLength = 2000
	MaxCommentLength       = 1000
)

type Post struct {
	ID        uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind      PostKind      `json:"kind" gorm:"type:varchar(20);not null;index"`
	AuthorID  uuid.UUID     `json:"author_id" gorm:"type:uuid;not null;index"`
	Author    *User         `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Title     *string       `json:"title,omitempty" gorm:"type:varchar(100)"`
	Body      string        `json:"body" gorm:"type:text;not null"`
	Type      *FeedPostType `json:"type,omitempty" gorm:"type:varchar(20)"`
	ImageURL  *string       `json:"image_url,omitempty" gorm:"type:varchar(500)"`
	CreatedAt time.Time     `json:"created_at" gorm:"index"`

	LikedBy      []uuid.UUID `json:"liked_by" gorm:"-"`
	CommentCount int         `json:"comment_count" gorm:"-"`
}

// LikedByUser reports whether userID is in the like set.
func (p *Post) LikedByUser(userID uuid.UUID) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Like is unique per (user, post).
type Like struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;not null;uniqueIndex:idx_like_user_post"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_like_user_post"`
	Kind      PostKind  `json:"kind" gorm:"type:varchar(20);not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;not null;index"`
	Kind      PostKind  `json:"kind" gorm:"type:varchar(20);not null;index"`
	AuthorID  uuid.UUID `json:"author_id" gorm:"type:uuid;not null"`
	Author    *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Pending marks a locally inserted comment not yet confirmed by the store.
	Pending bool `json:"-" gorm:"-"`
}

// PostRequest is the create-post input.
type PostRequest struct {
	Title    *string       `json:"title,omitempty"`
	Body     string        `json:"body"`
	Type     *FeedPostType `json:"type,omitempty"`
	ImageURL *string       `json:"image_url,omitempty"`
}

// Validate checks the request against the limits of its kind.
func (r *PostRequest) Validate(kind PostKind) error {
	body := strings.TrimSpace(r.Body)
	if body == "" {
		return apperr.Invalid("body", "body is required")
	}
	switch kind {
	case PostKindFeed:
		if r.Title == nil || strings.TrimSpace(*r.Title) == "" {
			return apperr.Invalid("title", "title is required")
		}
		if utf8.RuneCountInString(strings.TrimSpace(*r.Title)) > MaxFeedTitleLength {
			return apperr.Invalid("title", "title must be at most %d characters", MaxFeedTitleLength)
		}
		if utf8.RuneCountInString(body) > MaxFeedBodyLength {
			return apperr.Invalid("body", "body must be at most %d characters", MaxFeedBodyLength)
		}
		if r.Type != nil && !r.Type.Valid() {
			return apperr.Invalid("type", "unknown type %q", *r.Type)
		}
	case PostKindCommunity:
		if utf8.RuneCountInString(body) > MaxCommunityBodyLength {
			return apperr.Invalid("body", "body must be at most %d characters", MaxCommunityBodyLength)
		}
	default:
		return apperr.Invalid("kind", "unknown post kind %q", kind)
	}
	return nil
}

// ValidateComment trims a comment body and checks its length.
func ValidateComment(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperr.Invalid("body", "comment is empty")
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return "", apperr.Invalid("body", "comment must be at most %d characters", MaxCommentLength)
	}
	return body, nil
}
