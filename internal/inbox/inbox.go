// Package inbox keeps the signed-in user's notifications in sync with the
// server and raises desktop alerts for new ones.
package inbox

import (
	"context"
	"log"
	"sync"

	"biblioteca-mistica/internal/notice"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// Limit is the number of notifications loaded.
const Limit = 100

// DefaultIcon is used for the alert icon and badge.
const DefaultIcon = "/icon-192.png"

// Store is the remote side of the inbox. Every call acts as the signed-in
// user.
type Store interface {
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	CreateNotification(ctx context.Context, req *models.NotificationRequest) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error
	ClearNotifications(ctx context.Context) (int64, error)
}

// Alert is a desktop notification. Open is set when the notification has a
// link and should be called when the user activates the alert.
type Alert struct {
	Title string
	Body  string
	Icon  string
	Badge string
	Tag   string
	Link  string
	Open  func()
}

// Desktop displays alerts.
type Desktop interface {
	Show(a Alert)
}

// Options configure an Inbox. Zero values are usable.
type Options struct {
	Desktop Desktop
	Notices notice.Sink
	// OpenLink follows a deep link when an alert is activated.
	OpenLink func(link string)
	Icon     string
}

// Inbox is the local list of notifications and the unread count.
type Inbox struct {
	store   Store
	perms   *Permissions
	desktop Desktop
	notices notice.Sink
	open    func(string)
	icon    string

	mu       sync.Mutex
	items    []models.Notification
	unread   int
	onChange func()

	watchMu sync.Mutex
	sub     realtime.Subscription
	closed  bool
}

func New(store Store, perms *Permissions, opts Options) *Inbox {
	if opts.Notices == nil {
		opts.Notices = notice.Discard
	}
	if opts.Icon == "" {
		opts.Icon = DefaultIcon
	}
	return &Inbox{
		store:   store,
		perms:   perms,
		desktop: opts.Desktop,
		notices: opts.Notices,
		open:    opts.OpenLink,
		icon:    opts.Icon,
	}
}

// OnChange registers a callback run after a realtime event changes the list.
func (in *Inbox) OnChange(fn func()) {
	in.mu.Lock()
	in.onChange = fn
	in.mu.Unlock()
}

// Items returns the notifications, newest first.
func (in *Inbox) Items() []models.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]models.Notification(nil), in.items...)
}

func (in *Inbox) Unread() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.unread
}

// Load replaces the list with the newest notifications from the server.
func (in *Inbox) Load(ctx context.Context) error {
	list, err := in.store.ListNotifications(ctx)
	if err != nil {
		in.fail("Erro ao carregar notificações", err)
		return err
	}
	if len(list) > Limit {
		list = list[:Limit]
	}
	in.mu.Lock()
	in.items = list
	in.unread = countUnread(list)
	in.mu.Unlock()
	return nil
}

// RequestPermission asks for desktop alert permission if it was never
// answered.
func (in *Inbox) RequestPermission(ctx context.Context) (bool, error) {
	if in.perms == nil {
		return false, nil
	}
	return in.perms.Request(ctx)
}

// Add creates a notification for the signed-in user and shows it.
func (in *Inbox) Add(ctx context.Context, req *models.NotificationRequest) (*models.Notification, error) {
	n, err := in.store.CreateNotification(ctx, req)
	if err != nil {
		in.fail("Erro ao criar notificação", err)
		return nil, err
	}
	if in.prepend(*n) {
		in.alert(ctx, *n)
	}
	return n, nil
}

// MarkRead marks one notification read on the server, then locally.
func (in *Inbox) MarkRead(ctx context.Context, id uuid.UUID) error {
	if err := in.store.MarkNotificationRead(ctx, id); err != nil {
		in.fail("Erro ao marcar notificação como lida", err)
		return err
	}
	in.mu.Lock()
	for i := range in.items {
		if in.items[i].ID == id && !in.items[i].Read {
			in.items[i].Read = true
			in.unread = max(0, in.unread-1)
		}
	}
	in.mu.Unlock()
	return nil
}

func (in *Inbox) MarkAllRead(ctx context.Context) error {
	if _, err := in.store.MarkAllNotificationsRead(ctx); err != nil {
		in.fail("Erro ao marcar todas como lidas", err)
		return err
	}
	in.mu.Lock()
	for i := range in.items {
		in.items[i].Read = true
	}
	in.unread = 0
	in.mu.Unlock()
	return nil
}

func (in *Inbox) Remove(ctx context.Context, id uuid.UUID) error {
	if err := in.store.DeleteNotification(ctx, id); err != nil {
		in.fail("Erro ao remover notificação", err)
		return err
	}
	in.mu.Lock()
	kept := in.items[:0:0]
	for _, n := range in.items {
		if n.ID == id {
			if !n.Read {
				in.unread = max(0, in.unread-1)
			}
			continue
		}
		kept = append(kept, n)
	}
	in.items = kept
	in.mu.Unlock()
	return nil
}

func (in *Inbox) ClearAll(ctx context.Context) error {
	if _, err := in.store.ClearNotifications(ctx); err != nil {
		in.fail("Erro ao limpar notificações", err)
		return err
	}
	in.mu.Lock()
	in.items = nil
	in.unread = 0
	in.mu.Unlock()
	return nil
}

// prepend adds n at the head unless a notification with the same id is
// already listed. It reports whether n was added.
func (in *Inbox) prepend(n models.Notification) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, existing := range in.items {
		if existing.ID == n.ID {
			return false
		}
	}
	in.items = append([]models.Notification{n}, in.items...)
	if len(in.items) > Limit {
		in.items = in.items[:Limit]
	}
	if !n.Read {
		in.unread++
	}
	return true
}

// alert shows n on the desktop when alerts are granted.
func (in *Inbox) alert(ctx context.Context, n models.Notification) {
	if in.desktop == nil || in.perms == nil || in.perms.State(ctx) != PermissionGranted {
		return
	}
	a := Alert{
		Title: n.Title,
		Body:  n.Message,
		Icon:  in.icon,
		Badge: in.icon,
		Tag:   n.ID.String(),
	}
	if n.Link != nil && *n.Link != "" {
		link := *n.Link
		a.Link = link
		a.Open = func() {
			if in.open != nil {
				in.open(link)
			}
		}
	}
	in.desktop.Show(a)
}

func (in *Inbox) fail(title string, err error) {
	log.Printf("❌ [INBOX] %s: %v", title, err)
	in.notices.Notice(notice.Notice{Title: title, Description: err.Error(), Variant: notice.Destructive})
}

func countUnread(list []models.Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
