// Package session holds the authenticated user of the client.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"biblioteca-mistica/pkg/models"
)

// Key is the durable storage key of the session.
const Key = "biblioteca_user"

// Session is the signed-in user and the API token issued for them.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Store is the single source of the current session. It is created once
// and passed to whatever needs the viewer.
type Store struct {
	storage Storage

	mu      sync.RWMutex
	current *Session
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Storage exposes the backing storage for other small client state.
func (s *Store) Storage() Storage {
	return s.storage
}

// Hydrate loads the persisted session. A payload that does not decode is
// removed and the store stays signed out.
func (s *Store) Hydrate(ctx context.Context) (*Session, error) {
	raw, err := s.storage.Get(ctx, Key)
	if errors.Is(err, ErrNoValue) {
		s.setCurrent(nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.Token == "" {
		log.Printf("⚠️ [SESSION] Discarding unreadable session: %v", err)
		if derr := s.storage.Delete(ctx, Key); derr != nil {
			log.Printf("❌ [SESSION] Failed to remove corrupt session: %v", derr)
		}
		s.setCurrent(nil)
		return nil, nil
	}
	s.setCurrent(&sess)
	return &sess, nil
}

// Current returns the session in memory, or nil when signed out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// User returns the signed-in user, or nil.
func (s *Store) User() *models.User {
	if cur := s.Current(); cur != nil {
		return &cur.User
	}
	return nil
}

// Set replaces the session and persists it. nil signs out.
func (s *Store) Set(ctx context.Context, sess *Session) error {
	if sess == nil {
		return s.Clear(ctx)
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.storage.Set(ctx, Key, raw); err != nil {
		return err
	}
	cp := *sess
	s.setCurrent(&cp)
	return nil
}

// UpdateUser replaces the user of the current session, keeping the token.
func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	cur := s.Current()
	if cur == nil {
		return errors.New("not signed in")
	}
	cur.User = u
	return s.Set(ctx, cur)
}

// Clear signs out and removes the persisted session.
func (s *Store) Clear(ctx context.Context) error {
	s.setCurrent(nil)
	return s.storage.Delete(ctx, Key)
}

func (s *Store) setCurrent(sess *Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}
