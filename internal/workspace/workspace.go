// Package workspace is the notes page: a searchable list, the open note and
// its auto-saving editor, wired to a note store.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/notepad/internal/autosave"
	"example.com/notepad/internal/events"
	"example.com/notepad/internal/notes"
	"example.com/notepad/internal/selection"
)

// Notice is a transient message for the user, such as a toast.
type Notice struct {
	Title   string
	Message string
	Err     bool
}

// Listener is implemented by stores that can stream change events.
type Listener interface {
	ID() string
	Listen(ctx context.Context, fn func(events.Message)) error
}

type Option func(*options)

type options struct {
	quiet    time.Duration
	log      *zap.SugaredLogger
	onNotice func(Notice)
	onStatus func(autosave.Status)
}

func WithQuiet(d time.Duration) Option {
	return func(o *options) { o.quiet = d }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

func WithNoticeFunc(fn func(Notice)) Option {
	return func(o *options) { o.onNotice = fn }
}

func WithStatusFunc(fn func(autosave.Status)) Option {
	return func(o *options) { o.onStatus = fn }
}

type Workspace struct {
	store    notes.Store
	sel      *selection.Controller
	editor   *autosave.Controller
	log      *zap.SugaredLogger
	onNotice func(Notice)

	mu    sync.Mutex
	all   []notes.Note
	query string
}

func New(store notes.Store, opts ...Option) *Workspace {
	o := options{quiet: autosave.DefaultQuiet}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop().Sugar()
	}

	asOpts := []autosave.Option{autosave.WithLogger(o.log)}
	if o.onStatus != nil {
		asOpts = append(asOpts, autosave.WithStatusFunc(o.onStatus))
	}
	return &Workspace{
		store:    store,
		sel:      selection.New(),
		editor:   autosave.New(store, o.quiet, asOpts...),
		log:      o.log,
		onNotice: o.onNotice,
	}
}

// Refresh reloads the list. When nothing is selected the most recently
// updated note is opened.
func (w *Workspace) Refresh(ctx context.Context) error {
	items, err := w.store.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	w.mu.Lock()
	w.all = items
	w.mu.Unlock()

	w.sel.Sync(items)
	w.reconcile(false)
	return nil
}

func (w *Workspace) Search(query string) {
	w.mu.Lock()
	w.query = query
	w.mu.Unlock()
}

// Visible is the list filtered by the current search.
func (w *Workspace) Visible() []notes.Note {
	w.mu.Lock()
	defer w.mu.Unlock()
	return selection.Filter(w.all, w.query)
}

// Open selects id and loads it into the editor. An id missing from the list
// leaves the editor empty.
func (w *Workspace) Open(id int64) {
	w.sel.Select(id)
	w.reconcile(true)
}

// Current is the open note as last stored.
func (w *Workspace) Current() (notes.Note, bool) {
	return w.editor.Note()
}

// Draft is the editor's unsaved title and content.
func (w *Workspace) Draft() (title, content string) {
	return w.editor.Draft()
}

// New creates an untitled note and opens it.
func (w *Workspace) New(ctx context.Context) (notes.Note, error) {
	n, err := w.store.Create(ctx, notes.NewNote{Title: notes.String(notes.DefaultTitle), Content: notes.String("")})
	if err != nil {
		w.log.Warnw("create note", "error", err)
		w.notify(Notice{Title: "Error", Message: "Failed to create new note", Err: true})
		return notes.Note{}, err
	}
	w.sel.Created(n.ID)
	if err := w.Refresh(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// Delete removes id. If it was open, the first other note still visible
// under the current search is opened instead.
func (w *Workspace) Delete(ctx context.Context, id int64) error {
	visible := w.Visible()

	removed, err := w.store.Delete(ctx, id)
	if err == nil && !removed {
		err = fmt.Errorf("delete note %d: %w", id, notes.ErrNotFound)
	}
	if err != nil {
		w.log.Warnw("delete note", "id", id, "error", err)
		w.notify(Notice{Title: "Error", Message: "Failed to delete note", Err: true})
		return err
	}

	w.sel.Deleted(id, visible)
	w.notify(Notice{Title: "Success", Message: "Note deleted successfully"})
	return w.Refresh(ctx)
}

func (w *Workspace) TypeTitle(s string)   { w.editor.SetTitle(s) }
func (w *Workspace) TypeContent(s string) { w.editor.SetContent(s) }

func (w *Workspace) Status() autosave.Status { return w.editor.Status() }

// Flush saves the editor draft now.
func (w *Workspace) Flush() { w.editor.Flush() }

func (w *Workspace) Close() { w.editor.Close() }

// Watch refreshes the workspace on changes made by other clients until ctx
// is done. A remote edit of the open note reloads the editor.
func (w *Workspace) Watch(ctx context.Context) error {
	l, ok := w.store.(Listener)
	if !ok {
		return fmt.Errorf("store %T does not stream changes", w.store)
	}
	return l.Listen(ctx, func(m events.Message) {
		if m.Origin == l.ID() {
			return
		}
		w.remote(ctx, m)
	})
}

func (w *Workspace) remote(ctx context.Context, m events.Message) {
	visible := w.Visible()
	if err := w.Refresh(ctx); err != nil {
		w.log.Warnw("refresh after remote change", "type", m.Type, "error", err)
		return
	}

	id, ok := w.sel.Selected()
	if !ok || id != m.ID {
		return
	}
	switch m.Action {
	case "deleted":
		w.sel.Deleted(m.ID, visible)
		w.reconcile(false)
	case "updated":
		w.reconcile(true)
	}
}

// reconcile loads the selected note into the editor when it is not the one
// already loaded, or always when force is set.
func (w *Workspace) reconcile(force bool) {
	w.mu.Lock()
	n, ok := w.sel.Resolve(w.all)
	w.mu.Unlock()

	cur, loaded := w.editor.Note()
	if !force && ok == loaded && (!ok || cur.ID == n.ID) {
		return
	}
	if ok {
		w.editor.Load(&n)
	} else {
		w.editor.Load(nil)
	}
}

func (w *Workspace) notify(n Notice) {
	if w.onNotice != nil {
		w.onNotice(n)
	}
}
