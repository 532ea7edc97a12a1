package inbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"biblioteca-mistica/internal/session"
)

// PermissionKey is the storage key of the desktop alert permission.
const PermissionKey = "biblioteca_notification_permission"

// Permission is the desktop alert permission. It only ever moves from
// default to granted or denied.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Prompter asks the user whether desktop alerts may be shown. Returning
// PermissionDefault means the user dismissed the question.
type Prompter interface {
	Prompt(ctx context.Context) (Permission, error)
}

// Permissions remembers the user's answer in durable storage.
type Permissions struct {
	storage  session.Storage
	prompter Prompter

	mu     sync.Mutex
	state  Permission
	loaded bool
}

func NewPermissions(storage session.Storage, prompter Prompter) *Permissions {
	return &Permissions{storage: storage, prompter: prompter}
}

// State returns the current permission without prompting.
func (p *Permissions) State(ctx context.Context) Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load(ctx)
}

func (p *Permissions) load(ctx context.Context) Permission {
	if p.loaded {
		return p.state
	}
	p.state = PermissionDefault
	raw, err := p.storage.Get(ctx, PermissionKey)
	switch {
	case err == nil:
		switch Permission(raw) {
		case PermissionGranted, PermissionDenied:
			p.state = Permission(raw)
		}
	case !errors.Is(err, session.ErrNoValue):
		log.Printf("⚠️ [INBOX] Failed to read alert permission: %v", err)
	}
	p.loaded = true
	return p.state
}

// Request returns true when alerts are granted. The user is only asked
// while the permission is still default; a denial is never re-asked.
func (p *Permissions) Request(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.load(ctx) {
	case PermissionGranted:
		return true, nil
	case PermissionDenied:
		return false, nil
	}
	if p.prompter == nil {
		return false, nil
	}

	answer, err := p.prompter.Prompt(ctx)
	if err != nil {
		return false, fmt.Errorf("permission prompt: %w", err)
	}
	if answer != PermissionGranted && answer != PermissionDenied {
		return false, nil
	}
	if err := p.storage.Set(ctx, PermissionKey, []byte(answer)); err != nil {
		log.Printf("⚠️ [INBOX] Failed to persist alert permission: %v", err)
	}
	p.state = answer
	log.Printf("🔔 [INBOX] Desktop alerts %s", answer)
	return answer == PermissionGranted, nil
}
