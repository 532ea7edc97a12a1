package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"biblioteca-mistica/internal/notice"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/internal/session"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	user  uuid.UUID
	items []models.Notification
	err   error
	calls int
}

func (f *fakeStore) ListNotifications(context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Notification(nil), f.items...), nil
}

func (f *fakeStore) CreateNotification(_ context.Context, req *models.NotificationRequest) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n := models.Notification{ID: uuid.New(), UserID: f.user, Category: req.Category, Event: req.Event,
		Title: req.Title, Message: req.Message, Link: req.Link, CreatedAt: time.Now()}
	f.items = append([]models.Notification{n}, f.items...)
	return &n, nil
}

func (f *fakeStore) MarkNotificationRead(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeStore) MarkAllNotificationsRead(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return int64(len(f.items)), f.err
}

func (f *fakeStore) DeleteNotification(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeStore) ClearNotifications(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return int64(len(f.items)), f.err
}

func (f *fakeStore) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakePrompter struct {
	answer Permission
	asked  int
}

func (p *fakePrompter) Prompt(context.Context) (Permission, error) {
	p.asked++
	return p.answer, nil
}

type fakeDesktop struct {
	mu     sync.Mutex
	alerts []Alert
}

func (d *fakeDesktop) Show(a Alert) {
	d.mu.Lock()
	d.alerts = append(d.alerts, a)
	d.mu.Unlock()
}

func (d *fakeDesktop) shown() []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Alert(nil), d.alerts...)
}

func strPtr(s string) *string { return &s }

func notification(userID uuid.UUID, read bool, age time.Duration) models.Notification {
	return models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  models.CategoryCommunity,
		Event:     models.EventLike,
		Title:     "Nova curtida",
		Message:   "Alguém curtiu sua postagem",
		Read:      read,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestPermissionStateMachine(t *testing.T) {
	ctx := context.Background()
	storage := session.NewFileStorage(t.TempDir())

	dismiss := &fakePrompter{answer: PermissionDefault}
	p := NewPermissions(storage, dismiss)
	ok, err := p.Request(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, PermissionDefault, p.State(ctx))

	deny := &fakePrompter{answer: PermissionDenied}
	p = NewPermissions(storage, deny)
	ok, err = p.Request(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = p.Request(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, deny.asked)

	// Persisted: a fresh instance never asks again.
	again := &fakePrompter{answer: PermissionGranted}
	p = NewPermissions(storage, again)
	ok, err = p.Request(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, again.asked)
	assert.Equal(t, PermissionDenied, p.State(ctx))
}

func TestPermissionGrantedSkipsPrompt(t *testing.T) {
	ctx := context.Background()
	storage := session.NewFileStorage(t.TempDir())
	grant := &fakePrompter{answer: PermissionGranted}
	p := NewPermissions(storage, grant)

	for i := 0; i < 3; i++ {
		ok, err := p.Request(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, grant.asked)
}

func TestLoadCountsUnread(t *testing.T) {
	user := uuid.New()
	store := &fakeStore{user: user}
	for i := 0; i < Limit+5; i++ {
		store.items = append(store.items, notification(user, i%2 == 0, time.Duration(i)*time.Minute))
	}
	in := New(store, nil, Options{})
	require.NoError(t, in.Load(context.Background()))

	items := in.Items()
	assert.Len(t, items, Limit)
	assert.Equal(t, countUnread(items), in.Unread())
	assert.Equal(t, Limit/2, in.Unread())
}

func TestMutationsAreRemoteFirst(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	a, b, c := notification(user, false, 0), notification(user, false, time.Minute), notification(user, true, time.Hour)
	store := &fakeStore{user: user, items: []models.Notification{a, b, c}}
	rec := &notice.Recorder{}
	in := New(store, nil, Options{Notices: rec})
	require.NoError(t, in.Load(ctx))
	require.Equal(t, 2, in.Unread())

	store.fail(errors.New("offline"))
	assert.Error(t, in.MarkRead(ctx, a.ID))
	assert.Error(t, in.MarkAllRead(ctx))
	assert.Error(t, in.Remove(ctx, a.ID))
	assert.Error(t, in.ClearAll(ctx))
	assert.Equal(t, 2, in.Unread())
	assert.Len(t, in.Items(), 3)
	assert.Equal(t, []string{
		"Erro ao marcar notificação como lida",
		"Erro ao marcar todas como lidas",
		"Erro ao remover notificação",
		"Erro ao limpar notificações",
	}, rec.Titles())

	store.fail(nil)
	require.NoError(t, in.MarkRead(ctx, a.ID))
	assert.Equal(t, 1, in.Unread())
	require.NoError(t, in.MarkRead(ctx, a.ID))
	assert.Equal(t, 1, in.Unread(), "already read is not counted twice")

	require.NoError(t, in.Remove(ctx, c.ID))
	assert.Equal(t, 1, in.Unread())
	require.NoError(t, in.Remove(ctx, b.ID))
	assert.Equal(t, 0, in.Unread())
	assert.Len(t, in.Items(), 1)

	require.NoError(t, in.ClearAll(ctx))
	assert.Empty(t, in.Items())
	assert.Equal(t, 0, in.Unread())
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	store := &fakeStore{user: user, items: []models.Notification{notification(user, false, 0), notification(user, false, time.Minute)}}
	in := New(store, nil, Options{})
	require.NoError(t, in.Load(ctx))

	require.NoError(t, in.MarkAllRead(ctx))
	assert.Equal(t, 0, in.Unread())
	for _, n := range in.Items() {
		assert.True(t, n.Read)
	}
}

func grantedInbox(t *testing.T, store Store, desktop Desktop, opened *[]string) *Inbox {
	t.Helper()
	perms := NewPermissions(session.NewFileStorage(t.TempDir()), &fakePrompter{answer: PermissionGranted})
	_, err := perms.Request(context.Background())
	require.NoError(t, err)
	return New(store, perms, Options{
		Desktop:  desktop,
		OpenLink: func(link string) { *opened = append(*opened, link) },
	})
}

func TestWatchPrependsAndAlerts(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	store := &fakeStore{user: user, items: []models.Notification{notification(user, true, time.Hour)}}
	desktop := &fakeDesktop{}
	var opened []string
	in := grantedInbox(t, store, desktop, &opened)
	require.NoError(t, in.Load(ctx))

	changed := make(chan struct{}, 4)
	in.OnChange(func() { changed <- struct{}{} })

	hub := realtime.NewHub(0)
	require.NoError(t, in.Watch(ctx, hub, user))

	fresh := notification(user, false, 0)
	fresh.Link = strPtr("/comunidade#abc")
	e, err := realtime.NewEvent(models.TableNotifications, realtime.Insert, fresh, nil)
	require.NoError(t, err)

	// Someone else's notification never reaches this inbox.
	other, err := realtime.NewEvent(models.TableNotifications, realtime.Insert, notification(uuid.New(), false, 0), nil)
	require.NoError(t, err)
	require.NoError(t, hub.Publish(ctx, other))
	require.NoError(t, hub.Publish(ctx, e))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("notification event not delivered")
	}
	items := in.Items()
	require.Len(t, items, 2)
	assert.Equal(t, fresh.ID, items[0].ID)
	assert.Equal(t, 1, in.Unread())

	alerts := desktop.shown()
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, fresh.Title, a.Title)
	assert.Equal(t, fresh.Message, a.Body)
	assert.Equal(t, DefaultIcon, a.Icon)
	assert.Equal(t, DefaultIcon, a.Badge)
	assert.Equal(t, fresh.ID.String(), a.Tag)
	require.NotNil(t, a.Open)
	a.Open()
	assert.Equal(t, []string{"/comunidade#abc"}, opened)

	// The echo of an already listed row is ignored.
	require.NoError(t, hub.Publish(ctx, e))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, in.Items(), 2)
	assert.Equal(t, 1, in.Unread())

	in.Close()
	assert.Equal(t, 0, hub.Count())
}

func TestAlertsNeedPermission(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	store := &fakeStore{user: user}
	desktop := &fakeDesktop{}
	perms := NewPermissions(session.NewFileStorage(t.TempDir()), &fakePrompter{answer: PermissionDenied})
	in := New(store, perms, Options{Desktop: desktop})

	_, err := in.RequestPermission(ctx)
	require.NoError(t, err)
	_, err = in.Add(ctx, &models.NotificationRequest{Category: models.CategoryModule, Event: models.EventNew, Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.Len(t, in.Items(), 1)
	assert.Empty(t, desktop.shown())
}

func TestAddThenEchoIsDeduplicated(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	store := &fakeStore{user: user}
	desktop := &fakeDesktop{}
	var opened []string
	in := grantedInbox(t, store, desktop, &opened)

	n, err := in.Add(ctx, &models.NotificationRequest{Category: models.CategoryModule, Event: models.EventNew, Title: "Novo módulo", Message: "Tarot liberado"})
	require.NoError(t, err)
	require.Len(t, desktop.shown(), 1)
	assert.Nil(t, desktop.shown()[0].Open)

	e, err := realtime.NewEvent(models.TableNotifications, realtime.Insert, n, nil)
	require.NoError(t, err)
	in.handle(ctx, e)

	assert.Len(t, in.Items(), 1)
	assert.Equal(t, 1, in.Unread())
	assert.Len(t, desktop.shown(), 1)
}
