package store

import (
	"context"

	"biblioteca-mistica/pkg/models"

	"gorm.io/gorm"
)

// ListModules returns the catalog ordered by sequence.
func (r *Repository) ListModules(ctx context.Context) ([]models.Module, error) {
	var modules []models.Module
	if err := r.db.WithContext(ctx).Order("sequence ASC").Find(&modules).Error; err != nil {
		return nil, translate(err)
	}
	return modules, nil
}

// GetModuleBySlug loads a module with its PDFs.
func (r *Repository) GetModuleBySlug(ctx context.Context, slug string) (*models.Module, error) {
	var m models.Module
	err := r.db.WithContext(ctx).
		Preload("PDFs", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC, created_at ASC") }).
		Where("slug = ?", slug).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

// ListBanners returns active banners ordered by sequence.
func (r *Repository) ListBanners(ctx context.Context) ([]models.Banner, error) {
	var banners []models.Banner
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sequence ASC").
		Find(&banners).Error
	if err != nil {
		return nil, translate(err)
	}
	return banners, nil
}
