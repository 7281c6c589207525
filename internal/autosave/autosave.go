// Package autosave turns editor keystrokes into debounced note updates.
package autosave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/notepad/internal/notes"
)

// DefaultQuiet is how long a field must stay unchanged before it is saved.
const DefaultQuiet = 500 * time.Millisecond

type Status int

const (
	Saved Status = iota
	Saving
	Error
)

func (s Status) String() string {
	switch s {
	case Saving:
		return "saving"
	case Error:
		return "error"
	default:
		return "saved"
	}
}

// Updater is the write half of the note store.
type Updater interface {
	Update(ctx context.Context, id int64, p notes.NotePatch) (notes.Note, error)
}

type Option func(*Controller)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Controller) { c.log = log }
}

// WithStatusFunc registers fn to be called after every status change.
func WithStatusFunc(fn func(Status)) Option {
	return func(c *Controller) { c.onStatus = fn }
}

// WithTimeout bounds a single update call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// Controller holds the draft of the open note. Title and content each have
// their own quiet-period timer; when either fires, the debounced pair is
// compared with the stored note and written if different.
//
// Updates are not sequenced: each one runs on its own goroutine, nothing is
// cancelled, and whichever response arrives last replaces the loaded note.
type Controller struct {
	up       Updater
	log      *zap.SugaredLogger
	onStatus func(Status)
	timeout  time.Duration

	titleTimer   *Debouncer
	contentTimer *Debouncer

	mu       sync.Mutex
	note     *notes.Note
	title    string
	content  string
	dTitle   string
	dContent string
	epoch    uint64 // bumped by Load and Flush; stale timer callbacks compare against it
	seq      uint64 // id of the most recent update
	status   Status
	closed   bool
	inflight int
	idle     *sync.Cond // signalled when inflight drops to zero
}

func New(up Updater, quiet time.Duration, opts ...Option) *Controller {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	c := &Controller{
		up:           up,
		timeout:      30 * time.Second,
		titleTimer:   NewDebouncer(quiet),
		contentTimer: NewDebouncer(quiet),
	}
	c.idle = sync.NewCond(&c.mu)
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	return c
}

// Load replaces the draft with n (or clears it when n is nil). Pending timers
// are cancelled and unsaved edits of the previous note are dropped.
func (c *Controller) Load(n *notes.Note) {
	c.titleTimer.Stop()
	c.contentTimer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if n == nil {
		c.note = nil
		c.title, c.content = "", ""
	} else {
		cp := *n
		c.note = &cp
		c.title, c.content = n.Title, n.Content
	}
	c.dTitle, c.dContent = c.title, c.content
}

func (c *Controller) SetTitle(s string) {
	c.mu.Lock()
	c.title = s
	epoch := c.epoch
	c.mu.Unlock()

	c.titleTimer.Trigger(func() {
		c.fire(epoch, func() { c.dTitle = s })
	})
}

func (c *Controller) SetContent(s string) {
	c.mu.Lock()
	c.content = s
	epoch := c.epoch
	c.mu.Unlock()

	c.contentTimer.Trigger(func() {
		c.fire(epoch, func() { c.dContent = s })
	})
}

// Flush cancels the timers, waits for updates already in flight, commits the
// current draft at once and waits for that update too.
func (c *Controller) Flush() {
	c.titleTimer.Stop()
	c.contentTimer.Stop()

	c.mu.Lock()
	c.epoch++
	c.waitIdleLocked()
	c.dTitle, c.dContent = c.title, c.content
	j, ok := c.decideLocked()
	c.mu.Unlock()
	if ok {
		c.start(j)
	}

	c.mu.Lock()
	c.waitIdleLocked()
	c.mu.Unlock()
}

// Close stops the timers. Updates already sent are left to finish.
func (c *Controller) Close() {
	c.titleTimer.Stop()
	c.contentTimer.Stop()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Draft returns the unsaved title and content.
func (c *Controller) Draft() (title, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title, c.content
}

// Note returns the loaded note as last stored, or false when none is loaded.
func (c *Controller) Note() (notes.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.note == nil {
		return notes.Note{}, false
	}
	return *c.note, true
}

type job struct {
	id    int64
	patch notes.NotePatch
	seq   uint64
}

func (c *Controller) fire(epoch uint64, commit func()) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	commit()
	j, ok := c.decideLocked()
	c.mu.Unlock()
	if ok {
		c.start(j)
	}
}

// decideLocked reports whether the debounced values differ from the stored
// note and, if so, marks a new update as in flight.
func (c *Controller) decideLocked() (job, bool) {
	if c.closed || c.note == nil {
		return job{}, false
	}
	if c.dTitle == c.note.Title && c.dContent == c.note.Content {
		return job{}, false
	}
	title, content := c.dTitle, c.dContent
	c.seq++
	c.status = Saving
	c.inflight++
	return job{
		id:    c.note.ID,
		patch: notes.NotePatch{Title: &title, Content: &content},
		seq:   c.seq,
	}, true
}

func (c *Controller) start(j job) {
	c.notify(Saving)
	go c.save(j)
}

func (c *Controller) save(j job) {
	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	n, err := c.up.Update(ctx, j.id, j.patch)

	c.mu.Lock()
	if err == nil && c.note != nil && c.note.ID == j.id {
		c.note = &n
	}
	latest := j.seq == c.seq
	if latest {
		if err != nil {
			c.status = Error
		} else {
			c.status = Saved
		}
	}
	status := c.status
	c.mu.Unlock()

	defer c.done()
	if err != nil {
		c.log.Warnw("auto-save failed", "id", j.id, "error", err)
	} else {
		c.log.Debugw("auto-saved", "id", j.id)
	}
	if latest {
		c.notify(status)
	}
}

func (c *Controller) waitIdleLocked() {
	for c.inflight > 0 {
		c.idle.Wait()
	}
}

func (c *Controller) done() {
	c.mu.Lock()
	c.inflight--
	if c.inflight == 0 {
		c.idle.Broadcast()
	}
	c.mu.Unlock()
}

func (c *Controller) notify(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
