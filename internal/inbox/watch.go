package inbox

import (
	"context"
	"encoding/json"
	"log"

	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// Watch subscribes to new notifications of userID. Each one is prepended,
// counted as unread and shown as a desktop alert when permitted.
func (in *Inbox) Watch(ctx context.Context, sub realtime.Subscriber, userID uuid.UUID) error {
	in.watchMu.Lock()
	defer in.watchMu.Unlock()
	if in.sub != nil {
		in.sub.Unsubscribe()
	}
	in.closed = false

	alertCtx := context.WithoutCancel(ctx)
	topic := realtime.Topic{
		Table:  models.TableNotifications,
		Event:  realtime.Insert,
		Filter: &realtime.Filter{Column: "user_id", Value: userID.String()},
	}
	s, err := sub.Subscribe(ctx, topic, func(e realtime.Event) {
		in.handle(alertCtx, e)
	})
	if err != nil {
		return err
	}
	in.sub = s
	log.Printf("📡 [INBOX] Watching notifications of %s", userID)
	return nil
}

func (in *Inbox) handle(ctx context.Context, e realtime.Event) {
	in.watchMu.Lock()
	closed := in.closed
	in.watchMu.Unlock()
	if closed {
		return
	}

	var n models.Notification
	if err := json.Unmarshal(e.New, &n); err != nil || n.ID == uuid.Nil {
		log.Printf("⚠️ [INBOX] Ignoring unreadable notification event: %v", err)
		return
	}
	if !in.prepend(n) {
		return
	}
	in.alert(ctx, n)

	in.mu.Lock()
	fn := in.onChange
	in.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close ends the subscription opened by Watch.
func (in *Inbox) Close() {
	in.watchMu.Lock()
	s := in.sub
	in.sub = nil
	in.closed = true
	in.watchMu.Unlock()
	if s != nil {
		s.Unsubscribe()
	}
}
