package chat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// Sender delivers a message to the agent and returns its reply.
type Sender interface {
	Send(ctx context.Context, message, username string) (string, error)
}

// Conversation is the live transcript plus the agent it talks to. Every
// change is saved.
type Conversation struct {
	sender  Sender
	history *History

	mu         sync.Mutex
	transcript *Transcript
}

func NewConversation(ctx context.Context, sender Sender, history *History) (*Conversation, error) {
	t, err := history.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Conversation{sender: sender, history: history, transcript: t}, nil
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript.Messages...)
}

// Send appends the user's message, asks the agent and appends its reply.
// When the agent fails the apology is appended instead and the error is
// returned alongside it.
func (c *Conversation) Send(ctx context.Context, text string, user *models.User) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, apperr.Invalid("message", "message is empty")
	}
	c.append(ctx, RoleUser, text)

	reply, err := c.sender.Send(ctx, text, Username(user))
	if err != nil {
		log.Printf("❌ [CHAT] Agent request failed: %v", err)
		return c.append(ctx, RoleAssistant, Apology), err
	}
	return c.append(ctx, RoleAssistant, reply), nil
}

func (c *Conversation) append(ctx context.Context, role Role, content string) Message {
	msg := Message{ID: newID(), Role: role, Content: content, Timestamp: time.Now()}

	c.mu.Lock()
	c.transcript.Messages = append(c.transcript.Messages, msg)
	snapshot := *c.transcript
	snapshot.Messages = append([]Message(nil), c.transcript.Messages...)
	c.mu.Unlock()

	if err := c.history.Save(ctx, &snapshot); err != nil {
		log.Printf("⚠️ [CHAT] Failed to save transcript: %v", err)
	}
	return msg
}

// Username is what the agent is told the user is called.
func Username(u *models.User) string {
	if u == nil {
		return "Usuário"
	}
	if u.DisplayName != nil && strings.TrimSpace(*u.DisplayName) != "" {
		return *u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return "Usuário"
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
