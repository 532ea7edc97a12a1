package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationCategory string

const (
	CategoryModule    NotificationCategory = "module"
	CategoryFeed      NotificationCategory = "feed"
	CategoryCommunity NotificationCategory = "community"
)

type NotificationEvent string

const (
	EventNew     NotificationEvent = "new"
	EventUpdate  NotificationEvent = "update"
	EventComment NotificationEvent = "comment"
	EventLike    NotificationEvent = "like"
)

// Notification belongs to exactly one user. JSON names match the column
// names so realtime row payloads decode straight into it.
type Notification struct {
	ID        uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID            `json:"user_id" gorm:"type:uuid;not null;index"`
	Category  NotificationCategory `json:"category" gorm:"type:varchar(20);not null"`
	Event     NotificationEvent    `json:"event" gorm:"type:varchar(20);not null"`
	Title     string               `json:"title" gorm:"type:varchar(200);not null"`
	Message   string               `json:"message" gorm:"type:text;not null"`
	Link      *string              `json:"link,omitempty" gorm:"type:varchar(500)"`
	Read      bool                 `json:"read" gorm:"not null;default:false;index"`
	Payload   datatypes.JSON       `json:"payload,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time            `json:"created_at" gorm:"index"`
}

// NotificationRequest is the API input for creating a notification.
type NotificationRequest struct {
	UserID   *uuid.UUID           `json:"user_id,omitempty"`
	Category NotificationCategory `json:"category"`
	Event    NotificationEvent    `json:"event"`
	Title    string               `json:"title"`
	Message  string               `json:"message"`
	Link     *string              `json:"link,omitempty"`
	Payload  interface{}          `json:"payload,omitempty"`
}

// NotificationPreferences are per-user toggles, upserted on UserID.
type NotificationPreferences struct {
	UserID           uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	LikesAndComments bool      `json:"likes_and_comments" gorm:"not null"`
	FeedPosts        bool      `json:"feed_posts" gorm:"not null"`
	CommunityPosts   bool      `json:"community_posts" gorm:"not null"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultPreferences enables every toggle.
func DefaultPreferences(userID uuid.UUID) NotificationPreferences {
	return NotificationPreferences{
		UserID:           userID,
		LikesAndComments: true,
		FeedPosts:        true,
		CommunityPosts:   true,
	}
}

// Allows reports whether a notification of the given category and event
// should be created under these preferences.
func (p NotificationPreferences) Allows(category NotificationCategory, event NotificationEvent) bool {
	switch event {
	case EventLike, EventComment:
		return p.LikesAndComments
	}
	switch category {
	case CategoryFeed:
		return p.FeedPosts
	case CategoryCommunity:
		return p.CommunityPosts
	}
	return true
}

// DeviceToken is an FCM registration for push delivery.
type DeviceToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Token     string    `json:"token" gorm:"type:varchar(512);not null;uniqueIndex"`
	Platform  string    `json:"platform" gorm:"type:varchar(20);not null;default:'web'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
