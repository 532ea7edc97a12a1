package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"biblioteca-mistica/internal/session"
)

const (
	// HistoryKey is the storage key of the transcript.
	HistoryKey = "robo_oculto_historico"
	// HistoryTTL is measured from the transcript's creation.
	HistoryTTL = 48 * time.Hour

	Greeting = "Olá! Sou o Robô Oculto, seu assistente místico. Como posso ajudá-lo hoje com conhecimento esotérico, astrologia, cabala ou outras práticas sagradas?"
	Apology  = "Desculpe, ocorreu um erro ao processar sua mensagem. Por favor, tente novamente em alguns instantes."
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the persisted conversation. CreatedAt is kept across saves
// so the whole transcript expires HistoryTTL after it was started.
type Transcript struct {
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"timestamp"`
}

func (t *Transcript) Created() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

// History loads and saves the transcript.
type History struct {
	storage session.Storage
	now     func() time.Time
}

func NewHistory(storage session.Storage) *History {
	return &History{storage: storage, now: time.Now}
}

func (h *History) fresh() *Transcript {
	now := h.now()
	return &Transcript{
		Messages:  []Message{{ID: "1", Role: RoleAssistant, Content: Greeting, Timestamp: now}},
		CreatedAt: now.UnixMilli(),
	}
}

// Load returns the saved transcript, or a new one holding only the greeting
// when nothing is saved, the saved value is unreadable, or it has expired.
func (h *History) Load(ctx context.Context) (*Transcript, error) {
	raw, err := h.storage.Get(ctx, HistoryKey)
	if errors.Is(err, session.ErrNoValue) {
		return h.fresh(), nil
	}
	if err != nil {
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(raw, &t); err != nil || len(t.Messages) == 0 {
		log.Printf("⚠️ [CHAT] Discarding unreadable transcript: %v", err)
		return h.fresh(), nil
	}
	if h.now().Sub(t.Created()) >= HistoryTTL {
		log.Printf("🧹 [CHAT] Transcript from %s expired", t.Created().Format(time.RFC3339))
		if err := h.storage.Delete(ctx, HistoryKey); err != nil {
			log.Printf("❌ [CHAT] Failed to remove expired transcript: %v", err)
		}
		return h.fresh(), nil
	}
	return &t, nil
}

func (h *History) Save(ctx context.Context, t *Transcript) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return h.storage.Set(ctx, HistoryKey, raw)
}

// Reset drops the saved transcript.
func (h *History) Reset(ctx context.Context) error {
	return h.storage.Delete(ctx, HistoryKey)
}
