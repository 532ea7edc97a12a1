package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// DefaultPostLimit bounds a wall listing.
const DefaultPostLimit = 50

type PostStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	RecipientsFor(ctx context.Context, category models.NotificationCategory, exclude uuid.UUID) ([]uuid.UUID, error)
	ListPosts(ctx context.Context, kind models.PostKind, limit int) ([]models.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	LookupPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	CreatePost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id uuid.UUID) error
	HasLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	AddLike(ctx context.Context, l *models.Like) error
	RemoveLike(ctx context.Context, postID, userID uuid.UUID) error
	ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	AddComment(ctx context.Context, c *models.Comment) error
}

// Notifier creates preference-filtered notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, req *models.NotificationRequest) (bool, error)
}

// PostService runs the feed and the community wall.
type PostService struct {
	store    PostStore
	notifier Notifier
}

func NewPostService(store PostStore, notifier Notifier) *PostService {
	return &PostService{store: store, notifier: notifier}
}

// List returns the newest posts of a wall. limit <= 0 uses DefaultPostLimit.
func (s *PostService) List(ctx context.Context, kind models.PostKind, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	return s.store.ListPosts(ctx, kind, limit)
}

// Create publishes a post. Feed posts need a publisher or an admin.
func (s *PostService) Create(ctx context.Context, actorID uuid.UUID, kind models.PostKind, req *models.PostRequest) (*models.Post, error) {
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}
	if kind == models.PostKindFeed && !actor.CanPublish() {
		log.Printf("[POSTS] ❌ REJECTED feed post | UserID=%s | not a publisher", actorID)
		return nil, apperr.ErrForbidden
	}
	if err := req.Validate(kind); err != nil {
		return nil, err
	}

	p := &models.Post{
		Kind:     kind,
		AuthorID: actorID,
		Body:     strings.TrimSpace(req.Body),
		ImageURL: trimmedOrNil(req.ImageURL),
	}
	if kind == models.PostKindFeed {
		p.Title = trimmedOrNil(req.Title)
		t := models.FeedPostInfo
		if req.Type != nil {
			t = *req.Type
		}
		p.Type = &t
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	log.Printf("✅ [POSTS] %s post %s created by %s", kind, p.ID, actorID)

	s.announce(ctx, actor, p)
	return p, nil
}

// announce notifies opted-in members about a new post.
func (s *PostService) announce(ctx context.Context, author *models.User, p *models.Post) {
	if s.notifier == nil {
		return
	}
	category := categoryFor(p.Kind)
	recipients, err := s.store.RecipientsFor(ctx, category, author.ID)
	if err != nil {
		log.Printf("⚠️ [POSTS] Failed to list recipients for post %s: %v", p.ID, err)
		return
	}

	title := "Nova postagem na comunidade"
	message := fmt.Sprintf("%s publicou: %s", author.Label(), excerpt(p.Body, 80))
	if p.Kind == models.PostKindFeed {
		title = "Novidade no feed"
		if p.Title != nil {
			message = *p.Title
		}
	}
	link := linkFor(p)

	sent := 0
	for _, uid := range recipients {
		created, err := s.notifier.Notify(ctx, uid, &models.NotificationRequest{
			Category: category,
			Event:    models.EventNew,
			Title:    title,
			Message:  message,
			Link:     &link,
			Payload:  map[string]string{"post_id": p.ID.String()},
		})
		if err != nil {
			log.Printf("⚠️ [POSTS] Notify %s about post %s failed: %v", uid, p.ID, err)
			continue
		}
		if created {
			sent++
		}
	}
	log.Printf("📣 [POSTS] Post %s announced to %d/%d member(s)", p.ID, sent, len(recipients))
}

// Delete removes a post with its likes and comments. Admins only.
func (s *PostService) Delete(ctx context.Context, actorID uuid.UUID, kind models.PostKind, postID uuid.UUID) error {
	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	if !actor.IsAdmin() {
		log.Printf("[POSTS] ❌ REJECTED delete | UserID=%s | PostID=%s | not admin", actorID, postID)
		return apperr.ErrForbidden
	}
	if _, err := s.lookup(ctx, kind, postID); err != nil {
		return err
	}
	return s.store.DeletePost(ctx, postID)
}

func (s *PostService) lookup(ctx context.Context, kind models.PostKind, postID uuid.UUID) (*models.Post, error) {
	p, err := s.store.LookupPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.Kind != kind {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func (s *PostService) HasLiked(ctx context.Context, actorID uuid.UUID, kind models.PostKind, postID uuid.UUID) (bool, error) {
	if _, err := s.lookup(ctx, kind, postID); err != nil {
		return false, err
	}
	return s.store.HasLiked(ctx, postID, actorID)
}

// Like adds the actor's like. A repeated like returns apperr.ErrDuplicate.
func (s *PostService) Like(ctx context.Context, actorID uuid.UUID, kind models.PostKind, postID uuid.UUID) error {
	p, err := s.lookup(ctx, kind, postID)
	if err != nil {
		return err
	}
	if err := s.store.AddLike(ctx, &models.Like{PostID: postID, UserID: actorID, Kind: kind}); err != nil {
		return err
	}
	s.notifyAuthor(ctx, actorID, p, models.EventLike, "Nova curtida", "%s curtiu sua postagem")
	return nil
}

func (s *PostService) Unlike(ctx context.Context, actorID uuid.UUID, kind models.PostKind, postID uuid.UUID) error {
	if _, err := s.lookup(ctx, kind, postID); err != nil {
		return err
	}
	return s.store.RemoveLike(ctx, postID, actorID)
}

func (s *PostService) Comments(ctx context.Context, kind models.PostKind, postID uuid.UUID) ([]models.Comment, error) {
	if _, err := s.lookup(ctx, kind, postID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, postID)
}

// AddComment appends a comment and returns the stored row with its author.
func (s *PostService) AddComment(ctx context.Context, actorID uuid.UUID, kind models.PostKind, postID uuid.UUID, body string) (*models.Comment, error) {
	body, err := models.ValidateComment(body)
	if err != nil {
		return nil, err
	}
	p, err := s.lookup(ctx, kind, postID)
	if err != nil {
		return nil, err
	}
	c := &models.Comment{PostID: postID, Kind: kind, AuthorID: actorID, Body: body}
	if err := s.store.AddComment(ctx, c); err != nil {
		return nil, err
	}
	s.notifyAuthor(ctx, actorID, p, models.EventComment, "Novo comentário", "%s comentou na sua postagem")
	return c, nil
}

func (s *PostService) notifyAuthor(ctx context.Context, actorID uuid.UUID, p *models.Post, event models.NotificationEvent, title, format string) {
	if s.notifier == nil || p.AuthorID == actorID {
		return
	}
	name := "Alguém"
	if actor, err := s.store.GetUser(ctx, actorID); err == nil {
		name = actor.Label()
	} else if !errors.Is(err, apperr.ErrNotFound) {
		log.Printf("⚠️ [POSTS] Failed to load actor %s: %v", actorID, err)
	}
	link := linkFor(p)
	_, err := s.notifier.Notify(ctx, p.AuthorID, &models.NotificationRequest{
		Category: categoryFor(p.Kind),
		Event:    event,
		Title:    title,
		Message:  fmt.Sprintf(format, name),
		Link:     &link,
		Payload:  map[string]string{"post_id": p.ID.String(), "actor_id": actorID.String()},
	})
	if err != nil {
		log.Printf("⚠️ [POSTS] Notify author %s (%s) failed: %v", p.AuthorID, event, err)
	}
}

func categoryFor(kind models.PostKind) models.NotificationCategory {
	if kind == models.PostKindFeed {
		return models.CategoryFeed
	}
	return models.CategoryCommunity
}

func linkFor(p *models.Post) string {
	if p.Kind == models.PostKindFeed {
		return "/feed#" + p.ID.String()
	}
	return "/comunidade#" + p.ID.String()
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
