package wall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/notice"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/internal/session"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	viewer   uuid.UUID
	posts    []models.Post
	liked    map[uuid.UUID]bool
	comments map[uuid.UUID][]models.Comment
	calls    map[string]int

	listErr, hasLikedErr, likeErr, unlikeErr, commentErr, deleteErr, createErr error

	onHasLiked   func()
	onAddComment func()
}

func newFakeStore(viewer uuid.UUID, posts ...models.Post) *fakeStore {
	return &fakeStore{
		viewer:   viewer,
		posts:    posts,
		liked:    make(map[uuid.UUID]bool),
		comments: make(map[uuid.UUID][]models.Comment),
		calls:    make(map[string]int),
	}
}

func (f *fakeStore) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeStore) ListPosts(_ context.Context, _ models.PostKind) ([]models.Post, error) {
	f.record("ListPosts")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Post, len(f.posts))
	for i, p := range f.posts {
		p.LikedBy = nil
		if f.liked[p.ID] {
			p.LikedBy = []uuid.UUID{f.viewer}
		}
		p.CommentCount = len(f.comments[p.ID])
		out[i] = p
	}
	return out, nil
}

func (f *fakeStore) CreatePost(_ context.Context, kind models.PostKind, req *models.PostRequest) (*models.Post, error) {
	f.record("CreatePost")
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := models.Post{ID: uuid.New(), Kind: kind, AuthorID: f.viewer, Body: req.Body, CreatedAt: time.Now()}
	f.mu.Lock()
	f.posts = append([]models.Post{p}, f.posts...)
	f.mu.Unlock()
	return &p, nil
}

func (f *fakeStore) DeletePost(_ context.Context, _ models.PostKind, postID uuid.UUID) error {
	f.record("DeletePost")
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == postID {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) HasLiked(_ context.Context, _ models.PostKind, postID uuid.UUID) (bool, error) {
	f.record("HasLiked")
	if f.onHasLiked != nil {
		f.onHasLiked()
	}
	if f.hasLikedErr != nil {
		return false, f.hasLikedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liked[postID], nil
}

func (f *fakeStore) Like(_ context.Context, _ models.PostKind, postID uuid.UUID) error {
	f.record("Like")
	if f.likeErr != nil {
		return f.likeErr
	}
	f.mu.Lock()
	f.liked[postID] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) Unlike(_ context.Context, _ models.PostKind, postID uuid.UUID) error {
	f.record("Unlike")
	if f.unlikeErr != nil {
		return f.unlikeErr
	}
	f.mu.Lock()
	delete(f.liked, postID)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) ListComments(_ context.Context, _ models.PostKind, postID uuid.UUID) ([]models.Comment, error) {
	f.record("ListComments")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Comment(nil), f.comments[postID]...), nil
}

func (f *fakeStore) AddComment(_ context.Context, kind models.PostKind, postID uuid.UUID, body string) (*models.Comment, error) {
	f.record("AddComment")
	if f.onAddComment != nil {
		f.onAddComment()
	}
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	c := models.Comment{ID: uuid.New(), PostID: postID, Kind: kind, AuthorID: f.viewer, Body: body, CreatedAt: time.Now()}
	f.mu.Lock()
	f.comments[postID] = append(f.comments[postID], c)
	f.mu.Unlock()
	return &c, nil
}

func strPtr(s string) *string { return &s }

func newSessions(t *testing.T, u models.User) *session.Store {
	t.Helper()
	s := session.NewStore(session.NewFileStorage(t.TempDir()))
	require.NoError(t, s.Set(context.Background(), &session.Session{User: u, Token: "t"}))
	return s
}

func setup(t *testing.T, role string) (*View, *fakeStore, *notice.Recorder, models.User, models.Post) {
	t.Helper()
	viewer := models.User{ID: uuid.New(), Email: "sofia@biblioteca.test", DisplayName: strPtr("Sofia"), Role: strPtr(role)}
	post := models.Post{ID: uuid.New(), Kind: models.PostKindCommunity, AuthorID: uuid.New(), Body: "Lua cheia hoje", CreatedAt: time.Now()}
	store := newFakeStore(viewer.ID, post)
	rec := &notice.Recorder{}
	v := NewView(models.PostKindCommunity, store, newSessions(t, viewer), rec)
	require.NoError(t, v.Reload(context.Background()))
	return v, store, rec, viewer, post
}

func TestToggleLikeFlipsLocallyFirst(t *testing.T) {
	v, store, rec, viewer, post := setup(t, "member")

	var likedDuringCall bool
	store.onHasLiked = func() {
		p, _ := v.Post(post.ID)
		likedDuringCall = p.LikedByUser(viewer.ID)
	}
	require.NoError(t, v.ToggleLike(context.Background(), post.ID))

	assert.True(t, likedDuringCall)
	assert.Equal(t, 1, store.called("Like"))
	assert.True(t, store.liked[post.ID])
	p, _ := v.Post(post.ID)
	assert.True(t, p.LikedByUser(viewer.ID))
	assert.Empty(t, rec.All())
}

func TestToggleLikeFollowsStoreState(t *testing.T) {
	v, store, _, viewer, post := setup(t, "member")
	// The store already has the like although the local copy does not.
	store.liked[post.ID] = true

	require.NoError(t, v.ToggleLike(context.Background(), post.ID))
	assert.Equal(t, 1, store.called("Unlike"))
	assert.Equal(t, 0, store.called("Like"))
	assert.False(t, store.liked[post.ID])

	p, _ := v.Post(post.ID)
	assert.True(t, p.LikedByUser(viewer.ID), "local flip stands until the next reload")
}

func TestToggleLikeDuplicateIsSilent(t *testing.T) {
	v, store, rec, viewer, post := setup(t, "member")
	store.likeErr = apperr.ErrDuplicate
	reloads := store.called("ListPosts")

	require.NoError(t, v.ToggleLike(context.Background(), post.ID))
	assert.Empty(t, rec.All())
	assert.Equal(t, reloads, store.called("ListPosts"))
	p, _ := v.Post(post.ID)
	assert.True(t, p.LikedByUser(viewer.ID))
}

func TestToggleLikeFailureReloads(t *testing.T) {
	v, store, rec, viewer, post := setup(t, "member")
	store.likeErr = errors.New("connection reset")
	reloads := store.called("ListPosts")

	err := v.ToggleLike(context.Background(), post.ID)
	assert.Error(t, err)
	assert.Equal(t, []string{"Erro ao curtir"}, rec.Titles())
	assert.Equal(t, reloads+1, store.called("ListPosts"))
	p, _ := v.Post(post.ID)
	assert.False(t, p.LikedByUser(viewer.ID))
}

func TestToggleLikeUnknownPost(t *testing.T) {
	v, store, _, _, _ := setup(t, "member")
	assert.ErrorIs(t, v.ToggleLike(context.Background(), uuid.New()), apperr.ErrNotFound)
	assert.Equal(t, 0, store.called("HasLiked"))
}

func TestAddCommentOptimistic(t *testing.T) {
	v, store, rec, viewer, post := setup(t, "member")
	v.SetDraft(post.ID, "Gratidão")

	store.onAddComment = func() {
		list := v.Comments(post.ID)
		require.Len(t, list, 1)
		assert.True(t, list[0].Pending)
		assert.Equal(t, viewer.ID, list[0].AuthorID)
		assert.Equal(t, "Sofia", list[0].Author.Label())
		assert.Equal(t, 1, v.CommentCount(post.ID))
		assert.Equal(t, "", v.Draft(post.ID))
	}
	require.NoError(t, v.AddComment(context.Background(), post.ID, "Gratidão"))

	list := v.Comments(post.ID)
	require.Len(t, list, 1)
	assert.False(t, list[0].Pending)
	assert.Equal(t, store.comments[post.ID][0].ID, list[0].ID)
	assert.Equal(t, 1, v.CommentCount(post.ID))
	assert.Empty(t, rec.All())
}

func TestAddCommentFailureRollsBack(t *testing.T) {
	v, store, rec, _, post := setup(t, "member")
	store.commentErr = errors.New("timeout")

	text := "  Que energia!  "
	err := v.AddComment(context.Background(), post.ID, text)
	assert.Error(t, err)
	assert.Empty(t, v.Comments(post.ID))
	assert.Equal(t, 0, v.CommentCount(post.ID))
	assert.Equal(t, text, v.Draft(post.ID))
	assert.Equal(t, []string{"Erro ao comentar"}, rec.Titles())
	assert.Equal(t, 1, store.called("AddComment"))
}

func TestAddCommentFailureAfterReload(t *testing.T) {
	v, store, rec, _, post := setup(t, "member")
	existing := models.Comment{ID: uuid.New(), PostID: post.ID, Kind: post.Kind, AuthorID: uuid.New(), Body: "Axé", CreatedAt: time.Now()}
	store.comments[post.ID] = []models.Comment{existing}
	store.commentErr = errors.New("timeout")
	store.onAddComment = func() {
		require.NoError(t, v.LoadComments(context.Background(), post.ID))
	}

	err := v.AddComment(context.Background(), post.ID, "Que lindo")
	assert.Error(t, err)
	assert.Equal(t, []models.Comment{existing}, v.Comments(post.ID))
	assert.Equal(t, 1, v.CommentCount(post.ID))
	assert.Equal(t, "Que lindo", v.Draft(post.ID))
	assert.Equal(t, []string{"Erro ao comentar"}, rec.Titles())
}

func TestAddCommentSavedAfterReloadDroppedTemp(t *testing.T) {
	v, store, _, _, post := setup(t, "member")
	store.onAddComment = func() {
		require.NoError(t, v.LoadComments(context.Background(), post.ID))
		assert.Empty(t, v.Comments(post.ID))
	}

	require.NoError(t, v.AddComment(context.Background(), post.ID, "Gratidão"))
	list := v.Comments(post.ID)
	require.Len(t, list, 1)
	assert.Equal(t, store.comments[post.ID][0].ID, list[0].ID)
	assert.False(t, list[0].Pending)
	assert.Equal(t, 1, v.CommentCount(post.ID))
}

func TestAddCommentBlankIsNoop(t *testing.T) {
	v, store, rec, _, post := setup(t, "member")
	require.NoError(t, v.AddComment(context.Background(), post.ID, " \t\n"))
	assert.Equal(t, 0, store.called("AddComment"))
	assert.Empty(t, v.Comments(post.ID))
	assert.Empty(t, rec.All())
}

func TestDeletePostRequiresAdmin(t *testing.T) {
	v, store, rec, _, post := setup(t, "member")
	before := v.Posts()

	err := v.DeletePost(context.Background(), post.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, 0, store.called("DeletePost"))
	assert.Equal(t, before, v.Posts())
	require.Len(t, rec.All(), 1)
	assert.Equal(t, "Acesso negado", rec.All()[0].Title)
	assert.Equal(t, "Apenas administradores podem deletar posts.", rec.All()[0].Description)
}

func TestDeletePostAsAdmin(t *testing.T) {
	v, store, rec, _, post := setup(t, "Admin")

	require.NoError(t, v.DeletePost(context.Background(), post.ID))
	assert.Equal(t, 1, store.called("DeletePost"))
	assert.Empty(t, v.Posts())
	assert.Equal(t, []string{"Post deletado"}, rec.Titles())
}

func TestCreatePost(t *testing.T) {
	v, store, rec, _, _ := setup(t, "member")
	ctx := context.Background()

	_, err := v.CreatePost(ctx, &models.PostRequest{Body: "   "})
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 0, store.called("CreatePost"))

	p, err := v.CreatePost(ctx, &models.PostRequest{Body: "Mercúrio direto!"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Post criado!"}, rec.Titles())
	posts := v.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, p.ID, posts[0].ID)
}

func TestCreateFeedPostNeedsPublisher(t *testing.T) {
	viewer := models.User{ID: uuid.New(), Email: "m@biblioteca.test"}
	store := newFakeStore(viewer.ID)
	rec := &notice.Recorder{}
	v := NewView(models.PostKindFeed, store, newSessions(t, viewer), rec)

	_, err := v.CreatePost(context.Background(), &models.PostRequest{Title: strPtr("Aviso"), Body: "corpo"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, 0, store.called("CreatePost"))
	assert.Equal(t, []string{"Acesso negado"}, rec.Titles())
}

func TestReloadFailureRaisesNotice(t *testing.T) {
	v, store, rec, _, _ := setup(t, "member")
	store.listErr = errors.New("offline")
	assert.Error(t, v.Reload(context.Background()))
	assert.Equal(t, []string{"Erro ao carregar posts"}, rec.Titles())
	assert.Len(t, v.Posts(), 1)
}

func TestOpenCommentsLoadsOnce(t *testing.T) {
	v, store, _, _, post := setup(t, "member")
	store.comments[post.ID] = []models.Comment{{ID: uuid.New(), PostID: post.ID, Body: "oi"}}
	ctx := context.Background()

	open, err := v.OpenComments(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, open)
	assert.Len(t, v.Comments(post.ID), 1)

	open, err = v.OpenComments(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, open)

	_, err = v.OpenComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.called("ListComments"))
}

func TestWatchReloadsOnEvents(t *testing.T) {
	v, store, _, _, post := setup(t, "member")
	hub := realtime.NewHub(0)
	ctx := context.Background()

	changed := make(chan struct{}, 8)
	v.OnChange(func() { changed <- struct{}{} })
	require.NoError(t, v.Watch(ctx, hub))

	base := store.called("ListPosts")
	like, err := realtime.NewEvent(models.TableLikes, realtime.Insert,
		models.Like{ID: uuid.New(), PostID: post.ID, Kind: models.PostKindCommunity}, nil)
	require.NoError(t, err)
	require.NoError(t, hub.Publish(ctx, like))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after like event")
	}
	assert.Equal(t, base+1, store.called("ListPosts"))

	// Other walls are filtered out.
	feed, err := realtime.NewEvent(models.TablePosts, realtime.Insert,
		models.Post{ID: uuid.New(), Kind: models.PostKindFeed}, nil)
	require.NoError(t, err)
	require.NoError(t, hub.Publish(ctx, feed))

	v.Close()
	assert.Equal(t, 0, hub.Count())
	require.NoError(t, hub.Publish(ctx, like))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, base+1, store.called("ListPosts"))
}
