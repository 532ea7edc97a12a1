// Package servicetest provides in-memory fakes of the service stores.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/fcm"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// Store is an in-memory stand-in for store.Repository.
type Store struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	Modules       []models.Module
	Banners       []models.Banner
	posts         map[uuid.UUID]*models.Post
	likes         map[[2]uuid.UUID]bool
	comments      []models.Comment
	notifications []models.Notification
	Prefs         map[uuid.UUID]models.NotificationPreferences
	tokens        map[string]models.DeviceToken
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:  map[uuid.UUID]*models.User{},
		posts:  map[uuid.UUID]*models.Post{},
		likes:  map[[2]uuid.UUID]bool{},
		Prefs:  map[uuid.UUID]models.NotificationPreferences{},
		tokens: map[string]models.DeviceToken{},
	}
}

// AddUser inserts u, assigning an id when it has none.
func (m *Store) AddUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = &u
	return &u
}

func (m *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *Store) UpdateProfile(_ context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if upd.DisplayName != nil {
		v := strings.TrimSpace(*upd.DisplayName)
		u.DisplayName = &v
	}
	if upd.Bio != nil {
		u.Bio = upd.Bio
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = upd.AvatarURL
	}
	cp := *u
	return &cp, nil
}

func (m *Store) RecipientsFor(_ context.Context, category models.NotificationCategory, exclude uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, u := range m.users {
		if id == exclude || !u.IsActive {
			continue
		}
		p, ok := m.Prefs[id]
		if !ok {
			p = models.DefaultPreferences(id)
		}
		if p.Allows(category, models.EventNew) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Store) ListModules(context.Context) ([]models.Module, error) { return m.Modules, nil }

func (m *Store) GetModuleBySlug(_ context.Context, slug string) (*models.Module, error) {
	for i := range m.Modules {
		if m.Modules[i].Slug == slug {
			return &m.Modules[i], nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *Store) ListBanners(context.Context) ([]models.Banner, error) { return m.Banners, nil }

func (m *Store) ListPosts(_ context.Context, kind models.PostKind, limit int) ([]models.Post, error) {
	return m.postsWhere(func(p *models.Post) bool { return p.Kind == kind }, limit), nil
}

func (m *Store) ListPostsByAuthor(_ context.Context, author uuid.UUID, kind models.PostKind, limit int) ([]models.Post, error) {
	return m.postsWhere(func(p *models.Post) bool { return p.Kind == kind && p.AuthorID == author }, limit), nil
}

func (m *Store) postsWhere(keep func(*models.Post) bool, limit int) []models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Post
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, m.decorated(*p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// decorated fills LikedBy and CommentCount the way the repository does.
// Callers hold m.mu.
func (m *Store) decorated(p models.Post) models.Post {
	p.LikedBy = []uuid.UUID{}
	for k := range m.likes {
		if k[0] == p.ID {
			p.LikedBy = append(p.LikedBy, k[1])
		}
	}
	p.CommentCount = 0
	for _, c := range m.comments {
		if c.PostID == p.ID {
			p.CommentCount++
		}
	}
	return p
}

func (m *Store) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return m.LookupPost(ctx, id)
}

func (m *Store) LookupPost(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Store) CreatePost(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now().Add(time.Duration(len(m.posts)) * time.Millisecond)
	p.Author = m.users[p.AuthorID]
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *Store) DeletePost(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.posts, id)
	for k := range m.likes {
		if k[0] == id {
			delete(m.likes, k)
		}
	}
	kept := m.comments[:0]
	for _, c := range m.comments {
		if c.PostID != id {
			kept = append(kept, c)
		}
	}
	m.comments = kept
	return nil
}

func (m *Store) HasLiked(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.likes[[2]uuid.UUID{postID, userID}], nil
}

func (m *Store) AddLike(_ context.Context, l *models.Like) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]uuid.UUID{l.PostID, l.UserID}
	if m.likes[k] {
		return apperr.ErrDuplicate
	}
	m.likes[k] = true
	return nil
}

func (m *Store) RemoveLike(_ context.Context, postID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.likes, [2]uuid.UUID{postID, userID})
	return nil
}

func (m *Store) ListComments(_ context.Context, postID uuid.UUID) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Store) AddComment(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.Author = m.users[c.AuthorID]
	m.comments = append(m.comments, *c)
	return nil
}

func (m *Store) ListNotifications(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for i := len(m.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if m.notifications[i].UserID == userID {
			out = append(out, m.notifications[i])
		}
	}
	return out, nil
}

func (m *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

// NotificationsFor returns userID's notifications in insertion order.
func (m *Store) NotificationsFor(userID uuid.UUID) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *Store) MarkNotificationRead(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].Read = true
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *Store) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && !m.notifications[i].Read {
			m.notifications[i].Read = true
			n++
		}
	}
	return n, nil
}

func (m *Store) DeleteNotification(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFound
}

func (m *Store) ClearNotifications(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.notifications[:0]
	var n int64
	for _, x := range m.notifications {
		if x.UserID == userID {
			n++
			continue
		}
		kept = append(kept, x)
	}
	m.notifications = kept
	return n, nil
}

func (m *Store) GetPreferences(_ context.Context, userID uuid.UUID) (*models.NotificationPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Prefs[userID]
	if !ok {
		p = models.DefaultPreferences(userID)
		m.Prefs[userID] = p
	}
	return &p, nil
}

func (m *Store) UpsertPreferences(_ context.Context, p *models.NotificationPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prefs[p.UserID] = *p
	return nil
}

func (m *Store) UpsertDeviceToken(_ context.Context, t *models.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Token] = *t
	return nil
}

func (m *Store) DeleteDeviceToken(_ context.Context, userID uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[token]; ok && t.UserID == userID {
		delete(m.tokens, token)
	}
	return nil
}

func (m *Store) DeviceTokens(_ context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for tok, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, tok)
		}
	}
	return out, nil
}

// Pusher records every push it is asked to send.
type Pusher struct {
	mu     sync.Mutex
	Pushes []fcm.Push
	Tokens [][]string
}

func (f *Pusher) Send(_ context.Context, tokens []string, p fcm.Push) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pushes = append(f.Pushes, p)
	f.Tokens = append(f.Tokens, tokens)
	return nil
}
