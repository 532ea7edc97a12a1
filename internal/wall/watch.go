package wall

import (
	"context"
	"log"
	"sync"

	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
)

type watcher struct {
	mu     sync.Mutex
	subs   []realtime.Subscription
	closed bool
}

func (w *watcher) add(s realtime.Subscription) {
	w.mu.Lock()
	w.subs = append(w.subs, s)
	w.mu.Unlock()
}

func (w *watcher) active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

// Watch subscribes to the posts, likes and comments of this wall and
// reloads the affected lists on every change. Reloads started by an event
// run to completion even after Close.
func (v *View) Watch(ctx context.Context, sub realtime.Subscriber) error {
	v.watch.mu.Lock()
	v.watch.closed = false
	v.watch.mu.Unlock()

	reqCtx := context.WithoutCancel(ctx)
	filter := &realtime.Filter{Column: "kind", Value: string(v.kind)}
	topics := []struct {
		table   string
		handler realtime.Handler
	}{
		{models.TablePosts, v.onPostChange(reqCtx)},
		{models.TableLikes, v.onPostChange(reqCtx)},
		{models.TableComments, v.onCommentChange(reqCtx)},
	}
	for _, t := range topics {
		s, err := sub.Subscribe(ctx, realtime.Topic{Table: t.table, Event: realtime.Any, Filter: filter}, t.handler)
		if err != nil {
			v.Close()
			return err
		}
		v.watch.add(s)
	}
	log.Printf("📡 [WALL] Watching %s wall", v.kind)
	return nil
}

// Close ends every subscription opened by Watch.
func (v *View) Close() {
	v.watch.mu.Lock()
	subs := v.watch.subs
	v.watch.subs = nil
	v.watch.closed = true
	v.watch.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (v *View) onPostChange(ctx context.Context) realtime.Handler {
	return func(e realtime.Event) {
		if !v.watch.active() {
			return
		}
		_ = v.Reload(ctx)
		v.changed()
	}
}

func (v *View) onCommentChange(ctx context.Context) realtime.Handler {
	return func(e realtime.Event) {
		if !v.watch.active() {
			return
		}
		if raw, ok := e.Field("post_id"); ok {
			if postID, err := uuid.Parse(raw); err == nil {
				v.mu.Lock()
				_, loaded := v.comments[postID]
				closed := !v.open[postID]
				v.mu.Unlock()
				// Reload refreshes open posts; closed ones keep their cached list current.
				if loaded && closed {
					_ = v.LoadComments(ctx, postID)
				}
			}
		}
		_ = v.Reload(ctx)
		v.changed()
	}
}

func (v *View) changed() {
	v.mu.Lock()
	fn := v.onChange
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
}
