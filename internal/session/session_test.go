package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *Session {
	name := "Sofia"
	role := "admin"
	return &Session{
		User: models.User{
			ID:           uuid.New(),
			Email:        "sofia@biblioteca.test",
			DisplayName:  &name,
			Role:         &role,
			PurchaseDate: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		Token: "token-123",
	}
}

func TestStoreSetHydrateClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(NewFileStorage(dir))

	sess, err := store.Hydrate(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, store.Current())

	want := testSession()
	require.NoError(t, store.Set(ctx, want))
	assert.FileExists(t, filepath.Join(dir, Key+".json"))

	reopened := NewStore(NewFileStorage(dir))
	got, err := reopened.Hydrate(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.User.ID, got.User.ID)
	assert.True(t, reopened.User().IsAdmin())

	require.NoError(t, reopened.Clear(ctx))
	assert.Nil(t, reopened.Current())
	assert.NoFileExists(t, filepath.Join(dir, Key+".json"))
}

func TestStoreSetNilSignsOut(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewFileStorage(t.TempDir()))
	require.NoError(t, store.Set(ctx, testSession()))
	require.NoError(t, store.Set(ctx, nil))
	assert.Nil(t, store.Current())
	assert.Nil(t, store.User())
}

func TestHydrateRemovesCorruptPayload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, Key+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore(NewFileStorage(dir))
	sess, err := store.Hydrate(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.NoFileExists(t, path)
}

func TestUpdateUserKeepsToken(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewFileStorage(t.TempDir()))
	assert.Error(t, store.UpdateUser(ctx, models.User{}))

	sess := testSession()
	require.NoError(t, store.Set(ctx, sess))
	u := sess.User
	bio := "astróloga"
	u.Bio = &bio
	require.NoError(t, store.UpdateUser(ctx, u))
	assert.Equal(t, "token-123", store.Current().Token)
	assert.Equal(t, "astróloga", *store.User().Bio)
}

func TestCurrentReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewFileStorage(t.TempDir()))
	require.NoError(t, store.Set(ctx, testSession()))
	cur := store.Current()
	cur.Token = "changed"
	assert.Equal(t, "token-123", store.Current().Token)
}

func TestFileStorageRejectsUnsafeKeys(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	assert.Error(t, s.Set(context.Background(), "../escape", []byte("x")))
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoValue)
	assert.NoError(t, s.Delete(context.Background(), "missing"))
}

func TestRedisStorage(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("Redis not available")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	store := NewStore(NewRedisStorage(client, "biblioteca:test:"+uuid.NewString()+":"))
	require.NoError(t, store.Set(ctx, testSession()))

	got, err := NewStore(store.Storage()).Hydrate(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "token-123", got.Token)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Storage().Get(ctx, Key)
	assert.ErrorIs(t, err, ErrNoValue)
}
