package wall

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/notice"
	"biblioteca-mistica/internal/session"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

// View is the local state of one wall: posts with their like sets, comment
// lists, comment counters and compose drafts.
type View struct {
	kind     models.PostKind
	store    Store
	sessions *session.Store
	notices  notice.Sink
	now      func() time.Time

	mu       sync.Mutex
	posts    []models.Post
	comments map[uuid.UUID][]models.Comment
	counts   map[uuid.UUID]int
	open     map[uuid.UUID]bool
	drafts   map[uuid.UUID]string
	onChange func()

	watch watcher
}

func NewView(kind models.PostKind, store Store, sessions *session.Store, notices notice.Sink) *View {
	if notices == nil {
		notices = notice.Discard
	}
	return &View{
		kind:     kind,
		store:    store,
		sessions: sessions,
		notices:  notices,
		now:      time.Now,
		comments: make(map[uuid.UUID][]models.Comment),
		counts:   make(map[uuid.UUID]int),
		open:     make(map[uuid.UUID]bool),
		drafts:   make(map[uuid.UUID]string),
	}
}

func (v *View) Kind() models.PostKind { return v.kind }

// OnChange registers a callback run after realtime events change the view.
func (v *View) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Posts returns a copy of the loaded posts, newest first.
func (v *View) Posts() []models.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Post, len(v.posts))
	for i, p := range v.posts {
		p.LikedBy = append([]uuid.UUID(nil), p.LikedBy...)
		out[i] = p
	}
	return out
}

// Post returns one loaded post.
func (v *View) Post(id uuid.UUID) (models.Post, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.indexOf(id)
	if i < 0 {
		return models.Post{}, false
	}
	p := v.posts[i]
	p.LikedBy = append([]uuid.UUID(nil), p.LikedBy...)
	return p, true
}

// Comments returns the loaded comments of a post, oldest first.
func (v *View) Comments(postID uuid.UUID) []models.Comment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.Comment(nil), v.comments[postID]...)
}

func (v *View) CommentCount(postID uuid.UUID) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counts[postID]
}

func (v *View) Draft(postID uuid.UUID) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.drafts[postID]
}

func (v *View) SetDraft(postID uuid.UUID, text string) {
	v.mu.Lock()
	v.drafts[postID] = text
	v.mu.Unlock()
}

// IsOpen reports whether the post's comments are shown.
func (v *View) IsOpen(postID uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open[postID]
}

// Reload replaces the post list with the store's and refreshes the comments
// of open posts.
func (v *View) Reload(ctx context.Context) error {
	posts, err := v.store.ListPosts(ctx, v.kind)
	if err != nil {
		v.fail("Erro ao carregar posts", err)
		return err
	}

	v.mu.Lock()
	v.posts = posts
	var refresh []uuid.UUID
	for _, p := range posts {
		v.counts[p.ID] = p.CommentCount
		if v.open[p.ID] {
			refresh = append(refresh, p.ID)
		}
	}
	v.mu.Unlock()

	for _, id := range refresh {
		_ = v.LoadComments(ctx, id)
	}
	return nil
}

// CreatePost validates and publishes a post, then reloads the wall.
func (v *View) CreatePost(ctx context.Context, req *models.PostRequest) (*models.Post, error) {
	viewer := v.sessions.User()
	if viewer == nil {
		return nil, apperr.ErrUnauthorized
	}
	if err := req.Validate(v.kind); err != nil {
		return nil, err
	}
	if v.kind == models.PostKindFeed && !viewer.CanPublish() {
		v.notices.Notice(notice.Notice{
			Title:       "Acesso negado",
			Description: "Apenas publicadores podem criar posts no feed.",
			Variant:     notice.Destructive,
		})
		return nil, apperr.ErrForbidden
	}

	post, err := v.store.CreatePost(ctx, v.kind, req)
	if err != nil {
		v.fail("Erro ao criar post", err)
		return nil, err
	}
	v.notices.Notice(notice.Notice{Title: "Post criado!", Variant: notice.Success})
	_ = v.Reload(ctx)
	return post, nil
}

// ToggleLike flips the viewer's like locally, then applies the change the
// store's current state calls for. A duplicate insert is ignored; any other
// failure raises a notice and reloads the wall.
func (v *View) ToggleLike(ctx context.Context, postID uuid.UUID) error {
	viewer := v.sessions.User()
	if viewer == nil {
		return apperr.ErrUnauthorized
	}

	v.mu.Lock()
	i := v.indexOf(postID)
	if i < 0 {
		v.mu.Unlock()
		return apperr.ErrNotFound
	}
	p := &v.posts[i]
	if p.LikedByUser(viewer.ID) {
		p.LikedBy = without(p.LikedBy, viewer.ID)
	} else {
		p.LikedBy = append(append([]uuid.UUID(nil), p.LikedBy...), viewer.ID)
	}
	v.mu.Unlock()

	liked, err := v.store.HasLiked(ctx, v.kind, postID)
	if err != nil {
		v.fail("Erro ao curtir", err)
		_ = v.Reload(ctx)
		return err
	}

	if liked {
		if err := v.store.Unlike(ctx, v.kind, postID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			v.fail("Erro ao remover curtida", err)
			_ = v.Reload(ctx)
			return err
		}
		return nil
	}

	err = v.store.Like(ctx, v.kind, postID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrDuplicate):
		log.Printf("ℹ️ [WALL] Like on %s already present, ignoring", postID)
		return nil
	default:
		v.fail("Erro ao curtir", err)
		_ = v.Reload(ctx)
		return err
	}
}

// AddComment shows the comment immediately under a temporary id, then
// swaps in the stored row. On failure the temporary comment is removed, the
// counter restored and the draft put back. Blank text does nothing.
func (v *View) AddComment(ctx context.Context, postID uuid.UUID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if _, err := models.ValidateComment(text); err != nil {
		return err
	}
	viewer := v.sessions.User()
	if viewer == nil {
		return apperr.ErrUnauthorized
	}

	tempID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("temporary comment id: %w", err)
	}
	author := *viewer
	temp := models.Comment{
		ID:        tempID,
		PostID:    postID,
		Kind:      v.kind,
		AuthorID:  viewer.ID,
		Author:    &author,
		Body:      text,
		CreatedAt: v.now(),
		Pending:   true,
	}

	v.mu.Lock()
	v.comments[postID] = append(v.comments[postID], temp)
	v.counts[postID]++
	v.drafts[postID] = ""
	v.mu.Unlock()

	saved, err := v.store.AddComment(ctx, v.kind, postID, text)
	if err != nil {
		v.mu.Lock()
		// A reload during the insert may already have dropped the temporary
		// comment and reset the counter.
		if hasComment(v.comments[postID], tempID) {
			v.comments[postID] = removeComment(v.comments[postID], tempID)
			if v.counts[postID] > 0 {
				v.counts[postID]--
			}
		}
		v.drafts[postID] = text
		v.mu.Unlock()
		v.fail("Erro ao comentar", err)
		return err
	}

	v.mu.Lock()
	list := v.comments[postID]
	switch {
	case hasComment(list, saved.ID):
		v.comments[postID] = removeComment(list, tempID)
	case hasComment(list, tempID):
		for i := range list {
			if list[i].ID == tempID {
				list[i] = *saved
				break
			}
		}
	default:
		v.comments[postID] = append(list, *saved)
		v.counts[postID]++
	}
	v.mu.Unlock()
	return nil
}

// DeletePost removes a post with its likes and comments. Only admins may
// delete; anyone else gets a denial notice and no remote call is made.
func (v *View) DeletePost(ctx context.Context, postID uuid.UUID) error {
	viewer := v.sessions.User()
	if viewer == nil {
		return apperr.ErrUnauthorized
	}
	if !viewer.IsAdmin() {
		v.notices.Notice(notice.Notice{
			Title:       "Acesso negado",
			Description: "Apenas administradores podem deletar posts.",
			Variant:     notice.Destructive,
		})
		return apperr.ErrForbidden
	}

	if err := v.store.DeletePost(ctx, v.kind, postID); err != nil {
		v.fail("Erro ao deletar post", err)
		return err
	}
	v.notices.Notice(notice.Notice{
		Title:       "Post deletado",
		Description: "O post foi removido com sucesso.",
		Variant:     notice.Success,
	})
	_ = v.Reload(ctx)
	return nil
}

// OpenComments toggles the comments of a post and loads them the first
// time they are shown. It returns the new visibility.
func (v *View) OpenComments(ctx context.Context, postID uuid.UUID) (bool, error) {
	v.mu.Lock()
	open := !v.open[postID]
	v.open[postID] = open
	_, loaded := v.comments[postID]
	v.mu.Unlock()

	if open && !loaded {
		return open, v.LoadComments(ctx, postID)
	}
	return open, nil
}

// LoadComments replaces the comments of a post with the store's.
func (v *View) LoadComments(ctx context.Context, postID uuid.UUID) error {
	comments, err := v.store.ListComments(ctx, v.kind, postID)
	if err != nil {
		log.Printf("⚠️ [WALL] Load comments for %s failed: %v", postID, err)
		return err
	}
	v.mu.Lock()
	v.comments[postID] = comments
	v.counts[postID] = len(comments)
	v.mu.Unlock()
	return nil
}

func (v *View) fail(title string, err error) {
	log.Printf("❌ [WALL] %s (%s): %v", title, v.kind, err)
	v.notices.Notice(notice.Notice{Title: title, Description: err.Error(), Variant: notice.Destructive})
}

func (v *View) indexOf(id uuid.UUID) int {
	for i := range v.posts {
		if v.posts[i].ID == id {
			return i
		}
	}
	return -1
}

func without(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func removeComment(list []models.Comment, id uuid.UUID) []models.Comment {
	out := make([]models.Comment, 0, len(list))
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func hasComment(list []models.Comment, id uuid.UUID) bool {
	for _, c := range list {
		if c.ID == id {
			return true
		}
	}
	return false
}
