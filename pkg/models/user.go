// pkg/models/user.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a member account.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	DisplayName  *string   `json:"display_name,omitempty" gorm:"type:varchar(100)"`
	AvatarURL    *string   `json:"avatar_url,omitempty" gorm:"type:varchar(500)"`
	Bio          *string   `json:"bio,omitempty" gorm:"type:text"`
	Role         *string   `json:"role,omitempty" gorm:"type:varchar(30)"`
	IsPublisher  bool      `json:"is_publisher" gorm:"not null;default:false"`
	PurchaseDate time.Time `json:"purchase_date" gorm:"type:timestamptz;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return TableUsers
}

// IsAdmin compares the role case-insensitively.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role != nil && strings.EqualFold(strings.TrimSpace(*u.Role), "admin")
}

// CanPublish reports whether the user may post on the feed.
func (u *User) CanPublish() bool {
	return u != nil && (u.IsPublisher || u.IsAdmin())
}

// Label is the name shown next to the user's posts and in chat.
func (u *User) Label() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != nil && strings.TrimSpace(*u.DisplayName) != "" {
		return *u.DisplayName
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// ProfileUpdate carries the editable profile fields. Nil fields are untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}
