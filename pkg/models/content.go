// pkg/models/content.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Module is one unit of the course catalog.
type Module struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title          string    `json:"title" gorm:"type:varchar(200);not null"`
	Slug           string    `json:"slug" gorm:"type:varchar(120);not null;uniqueIndex"`
	Sequence       int       `json:"sequence" gorm:"not null;index"`
	RequiresUnlock bool      `json:"requires_unlock" gorm:"not null;default:false"`
	CoverImageURL  *string   `json:"cover_image_url,omitempty" gorm:"type:varchar(500)"`
	Description    *string   `json:"description,omitempty" gorm:"type:text"`
	PDFs           []PDF     `json:"pdfs,omitempty" gorm:"foreignKey:ModuleID"`
	CreatedAt      time.Time `json:"created_at"`
}

// PDF is a document attached to a module.
type PDF struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ModuleID  uuid.UUID `json:"module_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"type:varchar(200);not null"`
	FileURL   string    `json:"file_url" gorm:"type:varchar(500);not null"`
	Sequence  int       `json:"sequence" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

// Banner is a promotional slide on the dashboard.
type Banner struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title           string    `json:"title" gorm:"type:varchar(200);not null;uniqueIndex"`
	Subtitle        *string   `json:"subtitle,omitempty" gorm:"type:varchar(300)"`
	BackgroundColor *string   `json:"background_color,omitempty" gorm:"type:varchar(30)"`
	TextColor       *string   `json:"text_color,omitempty" gorm:"type:varchar(30)"`
	ButtonText      *string   `json:"button_text,omitempty" gorm:"type:varchar(60)"`
	ButtonLink      *string   `json:"button_link,omitempty" gorm:"type:varchar(500)"`
	Sequence        int       `json:"sequence" gorm:"not null;default:0"`
	Active          bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"created_at"`
}

// ModuleView is a catalog entry annotated with the viewer's gate state.
type ModuleView struct {
	Module
	Locked        bool `json:"locked"`
	DaysRemaining int  `json:"days_remaining"`
}
