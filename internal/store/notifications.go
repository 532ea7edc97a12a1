package store

import (
	"context"
	"fmt"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// ListNotifications returns a user's newest notifications.
func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	var notifs []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifs).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifs, nil
}

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("DB create failed: %w", translate(err))
	}
	r.emit(ctx, models.TableNotifications, realtime.Insert, n, nil)
	return nil
}

// MarkNotificationRead flags one of the user's notifications as read.
func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return fmt.Errorf("mark read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	r.emit(ctx, models.TableNotifications, realtime.Update, map[string]interface{}{
		"id": id, "user_id": userID, "read": true,
	}, nil)
	return nil
}

// MarkAllNotificationsRead flags every unread notification of the user.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.emit(ctx, models.TableNotifications, realtime.Update, map[string]interface{}{
			"user_id": userID, "read": true,
		}, nil)
	}
	return res.RowsAffected, nil
}

func (r *Repository) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	r.emit(ctx, models.TableNotifications, realtime.Delete, nil, map[string]interface{}{
		"id": id, "user_id": userID,
	})
	return nil
}

// ClearNotifications deletes every notification of the user.
func (r *Repository) ClearNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear notifications: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.emit(ctx, models.TableNotifications, realtime.Delete, nil, map[string]interface{}{"user_id": userID})
	}
	return res.RowsAffected, nil
}

// GetPreferences returns the user's preferences, creating the default row
// when absent.
func (r *Repository) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreferences, error) {
	prefs := models.DefaultPreferences(userID)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("create default preferences: %w", err)
	}
	var stored models.NotificationPreferences
	if err := r.db.WithContext(ctx).First(&stored, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

// UpsertPreferences creates or replaces the user's preferences.
func (r *Repository) UpsertPreferences(ctx context.Context, p *models.NotificationPreferences) error {
	p.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"likes_and_comments", "feed_posts", "community_posts", "updated_at"}),
		}).
		Create(p).Error
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	r.emit(ctx, models.TablePreferences, realtime.Update, p, nil)
	return nil
}

// UpsertDeviceToken registers a push token, moving it to userID if another
// account held it.
func (r *Repository) UpsertDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
		}).
		Create(t).Error
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

func (r *Repository) DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.DeviceToken{}).Error
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

func (r *Repository) DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	return tokens, nil
}
