package store

import (
	"context"
	"fmt"
	"strings"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

// UpdateProfile applies the non-nil fields and returns the fresh row.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if upd.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*upd.DisplayName)
	}
	if upd.Bio != nil {
		updates["bio"] = strings.TrimSpace(*upd.Bio)
	}
	if upd.AvatarURL != nil {
		updates["avatar_url"] = *upd.AvatarURL
	}
	if len(updates) == 0 {
		return r.GetUser(ctx, id)
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update profile: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrNotFound
	}
	u, err := r.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	r.emit(ctx, models.TableUsers, realtime.Update, u, nil)
	return u, nil
}

// RecipientsFor returns active users other than exclude whose preferences
// allow announcements of the given category. Users without a preferences
// row get the defaults, which allow everything.
func (r *Repository) RecipientsFor(ctx context.Context, category models.NotificationCategory, exclude uuid.UUID) ([]uuid.UUID, error) {
	column := ""
	switch category {
	case models.CategoryFeed:
		column = "feed_posts"
	case models.CategoryCommunity:
		column = "community_posts"
	}

	q := r.db.WithContext(ctx).
		Table(models.TableUsers+" AS u").
		Joins("LEFT JOIN "+models.TablePreferences+" p ON p.user_id = u.id").
		Where("u.is_active = ? AND u.id <> ?", true, exclude)
	if column != "" {
		q = q.Where("(p.user_id IS NULL OR p." + column + " = true)")
	}

	var ids []uuid.UUID
	if err := q.Pluck("u.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return ids, nil
}
