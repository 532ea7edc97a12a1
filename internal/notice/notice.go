// Package notice carries transient user-facing messages from the client
// components to whatever displays them.
package notice

import "sync"

type Variant string

const (
	Default     Variant = "default"
	Destructive Variant = "destructive"
	Success     Variant = "success"
)

// Notice is a dismissable message.
type Notice struct {
	Title       string
	Description string
	Variant     Variant
}

// Sink displays notices.
type Sink interface {
	Notice(n Notice)
}

// Func adapts a function to a Sink.
type Func func(Notice)

func (f Func) Notice(n Notice) { f(n) }

// Discard drops every notice.
var Discard Sink = Func(func(Notice) {})

// Recorder keeps every notice it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notice
}

func (r *Recorder) Notice(n Notice) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// All returns the notices received so far.
func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.items...)
}

// Titles returns the titles received so far.
func (r *Recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, len(r.items))
	for i, n := range r.items {
		titles[i] = n.Title
	}
	return titles
}
