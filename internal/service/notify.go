package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/fcm"
	"biblioteca-mistica/internal/metrics"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MaxNotifications is how many notifications a user's list returns.
const MaxNotifications = 100

type NotificationStore interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, userID, id uuid.UUID) error
	ClearNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreferences, error)
	UpsertPreferences(ctx context.Context, p *models.NotificationPreferences) error
	UpsertDeviceToken(ctx context.Context, t *models.DeviceToken) error
	DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error
	DeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Pusher delivers to mobile and browser devices. *fcm.FCMClient implements it.
type Pusher interface {
	Send(ctx context.Context, tokens []string, p fcm.Push) error
}

type NotifyService struct {
	store   NotificationStore
	pusher  Pusher
	iconURL string
	wg      sync.WaitGroup
}

// NewNotifyService builds the service. pusher may be nil when push is disabled.
func NewNotifyService(store NotificationStore, pusher Pusher, iconURL string) *NotifyService {
	return &NotifyService{store: store, pusher: pusher, iconURL: iconURL}
}

func (s *NotifyService) List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, userID, MaxNotifications)
}

// Create validates and stores a notification for its owner, then pushes it
// to the owner's devices in the background.
func (s *NotifyService) Create(ctx context.Context, userID uuid.UUID, req *models.NotificationRequest) (*models.Notification, error) {
	title := strings.TrimSpace(req.Title)
	message := strings.TrimSpace(req.Message)
	if title == "" || message == "" {
		return nil, apperr.Invalid("title", "title and message are required")
	}
	switch req.Category {
	case models.CategoryModule, models.CategoryFeed, models.CategoryCommunity:
	default:
		return nil, apperr.Invalid("category", "unknown category %q", req.Category)
	}
	switch req.Event {
	case models.EventNew, models.EventUpdate, models.EventComment, models.EventLike:
	default:
		return nil, apperr.Invalid("event", "unknown event %q", req.Event)
	}

	var payload datatypes.JSON
	if req.Payload != nil {
		b, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, apperr.Invalid("payload", "invalid payload: %v", err)
		}
		payload = datatypes.JSON(b)
	}

	n := &models.Notification{
		UserID:   userID,
		Category: req.Category,
		Event:    req.Event,
		Title:    title,
		Message:  message,
		Link:     req.Link,
		Payload:  payload,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Category), string(n.Event)).Inc()
	log.Printf("✅ Notification %s created for user %s: %s", n.ID, userID, title)
	s.push(*n)
	return n, nil
}

// Notify creates a notification unless the recipient's preferences opt out.
// It reports whether one was created.
func (s *NotifyService) Notify(ctx context.Context, userID uuid.UUID, req *models.NotificationRequest) (bool, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.Allows(req.Category, req.Event) {
		return false, nil
	}
	if _, err := s.Create(ctx, userID, req); err != nil {
		return false, err
	}
	return true, nil
}

func (s *NotifyService) push(n models.Notification) {
	if s.pusher == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tokens, err := s.store.DeviceTokens(ctx, n.UserID)
		if err != nil {
			log.Printf("⚠️ [PUSH] Failed to load device tokens for %s: %v", n.UserID, err)
			return
		}
		if len(tokens) == 0 {
			return
		}
		p := fcm.Push{
			Title: n.Title,
			Body:  n.Message,
			Icon:  s.iconURL,
			Badge: s.iconURL,
			Tag:   n.ID.String(),
			Data: map[string]string{
				"category": string(n.Category),
				"event":    string(n.Event),
			},
		}
		if n.Link != nil {
			p.Link = *n.Link
		}
		if err := s.pusher.Send(ctx, tokens, p); err != nil {
			metrics.PushFailures.Inc()
			log.Printf("❌ [PUSH] Notification %s to user %s failed: %v", n.ID, n.UserID, err)
		}
	}()
}

// Wait blocks until background pushes finish.
func (s *NotifyService) Wait() {
	s.wg.Wait()
}

func (s *NotifyService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.MarkNotificationRead(ctx, userID, id)
}

func (s *NotifyService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *NotifyService) Remove(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.DeleteNotification(ctx, userID, id)
}

func (s *NotifyService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.ClearNotifications(ctx, userID)
}

func (s *NotifyService) Preferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreferences, error) {
	return s.store.GetPreferences(ctx, userID)
}

func (s *NotifyService) UpdatePreferences(ctx context.Context, userID uuid.UUID, p models.NotificationPreferences) (*models.NotificationPreferences, error) {
	p.UserID = userID
	if err := s.store.UpsertPreferences(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *NotifyService) RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Invalid("token", "token is required")
	}
	if platform == "" {
		platform = "web"
	}
	return s.store.UpsertDeviceToken(ctx, &models.DeviceToken{UserID: userID, Token: token, Platform: platform})
}

func (s *NotifyService) UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error {
	return s.store.DeleteDeviceToken(ctx, userID, strings.TrimSpace(token))
}
