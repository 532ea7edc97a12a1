// internal/store/seed.go
package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"biblioteca-mistica/pkg/models"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// SeedAdmin creates the administrator account when it does not exist yet.
func SeedAdmin(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up admin %s: %w", email, err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	role := "admin"
	name := "Administrador"
	admin := models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  &name,
		Role:         &role,
		IsPublisher:  true,
		IsActive:     true,
		PurchaseDate: time.Now().AddDate(0, 0, -365),
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin %s: %w", email, err)
	}
	log.Printf("✅ Seeded admin user: %s", email)
	return nil
}

// Catalog is the YAML seed file layout.
type Catalog struct {
	Modules []CatalogModule `yaml:"modules"`
	Banners []CatalogBanner `yaml:"banners"`
}

type CatalogModule struct {
	Title          string       `yaml:"title"`
	Slug           string       `yaml:"slug"`
	Sequence       int          `yaml:"sequence"`
	RequiresUnlock bool         `yaml:"requires_unlock"`
	CoverImageURL  string       `yaml:"cover_image_url"`
	Description    string       `yaml:"description"`
	PDFs           []CatalogPDF `yaml:"pdfs"`
}

type CatalogPDF struct {
	Title   string `yaml:"title"`
	FileURL string `yaml:"file_url"`
}

type CatalogBanner struct {
	Title           string `yaml:"title"`
	Subtitle        string `yaml:"subtitle"`
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
	ButtonText      string `yaml:"button_text"`
	ButtonLink      string `yaml:"button_link"`
	Sequence        int    `yaml:"sequence"`
	Active          *bool  `yaml:"active"`
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, m := range c.Modules {
		if m.Slug == "" || m.Title == "" {
			return nil, fmt.Errorf("catalog module #%d: title and slug are required", i+1)
		}
	}
	return &c, nil
}

// SeedCatalogFile loads the catalog at path. Existing modules (by slug) and
// banners (by title) are left untouched.
func SeedCatalogFile(db *gorm.DB, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return err
	}
	return SeedCatalog(db, c)
}

func SeedCatalog(db *gorm.DB, c *Catalog) error {
	for _, m := range c.Modules {
		var existing models.Module
		err := db.Where("slug = ?", m.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up module %s: %w", m.Slug, err)
		}

		module := models.Module{
			Title:          m.Title,
			Slug:           m.Slug,
			Sequence:       m.Sequence,
			RequiresUnlock: m.RequiresUnlock,
			CoverImageURL:  optional(m.CoverImageURL),
			Description:    optional(m.Description),
		}
		for i, p := range m.PDFs {
			module.PDFs = append(module.PDFs, models.PDF{Title: p.Title, FileURL: p.FileURL, Sequence: i + 1})
		}
		if err := db.Create(&module).Error; err != nil {
			return fmt.Errorf("failed to seed module %s: %w", m.Slug, err)
		}
		log.Printf("✅ Seeded module #%d: %s (%d pdfs)", m.Sequence, m.Slug, len(m.PDFs))
	}

	for _, b := range c.Banners {
		var count int64
		db.Model(&models.Banner{}).Where("title = ?", b.Title).Count(&count)
		if count > 0 {
			continue
		}
		active := true
		if b.Active != nil {
			active = *b.Active
		}
		banner := models.Banner{
			Title:           b.Title,
			Subtitle:        optional(b.Subtitle),
			BackgroundColor: optional(b.BackgroundColor),
			TextColor:       optional(b.TextColor),
			ButtonText:      optional(b.ButtonText),
			ButtonLink:      optional(b.ButtonLink),
			Sequence:        b.Sequence,
			Active:          active,
		}
		// Select keeps an explicit false for Active instead of the column default.
		if err := db.Select("*").Omit("ID").Create(&banner).Error; err != nil {
			return fmt.Errorf("failed to seed banner %s: %w", b.Title, err)
		}
		log.Printf("✅ Seeded banner: %s", b.Title)
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
