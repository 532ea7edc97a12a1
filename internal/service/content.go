package service

import (
	"context"
	"fmt"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/gate"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

type ContentStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListModules(ctx context.Context) ([]models.Module, error)
	GetModuleBySlug(ctx context.Context, slug string) (*models.Module, error)
	ListBanners(ctx context.Context) ([]models.Banner, error)
}

// ContentService serves the course catalog with gate state applied.
type ContentService struct {
	store ContentStore
	now   func() time.Time
}

func NewContentService(store ContentStore) *ContentService {
	return &ContentService{store: store, now: time.Now}
}

// Catalog lists every module with the viewer's lock state.
func (s *ContentService) Catalog(ctx context.Context, userID uuid.UUID) ([]models.ModuleView, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	modules, err := s.store.ListModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	now := s.now()
	views := make([]models.ModuleView, 0, len(modules))
	for _, m := range modules {
		st := gate.Evaluate(m.Sequence, u.PurchaseDate, now)
		views = append(views, models.ModuleView{Module: m, Locked: st.Locked, DaysRemaining: st.DaysRemaining})
	}
	return views, nil
}

// Module returns a module with its PDFs, or a LockedError while gated.
func (s *ContentService) Module(ctx context.Context, userID uuid.UUID, slug string) (*models.Module, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	m, err := s.store.GetModuleBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if st := gate.Evaluate(m.Sequence, u.PurchaseDate, s.now()); st.Locked {
		return nil, &apperr.LockedError{DaysRemaining: st.DaysRemaining}
	}
	return m, nil
}

func (s *ContentService) Banners(ctx context.Context) ([]models.Banner, error) {
	return s.store.ListBanners(ctx)
}
