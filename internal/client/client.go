// Package client talks to the notes API and keeps a small query cache of
// the list and individual notes, invalidated by successful writes and by
// change events from other clients.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/notepad/internal/events"
	"example.com/notepad/internal/notes"
)

var (
	ErrNotFound = notes.ErrNotFound
	ErrInvalid  = notes.ErrInvalid
)

// StatusError is returned for responses the client has no sentinel for.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

type Client struct {
	base string
	http *http.Client
	id   string
	log  *zap.SugaredLogger

	mu     sync.Mutex
	gen    uint64 // bumped by every write and invalidation
	list   []notes.Note
	listOK bool
	byID   map[int64]notes.Note
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithID overrides the generated client id sent in X-Client-ID.
func WithID(id string) Option {
	return func(c *Client) { c.id = id }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		id:   uuid.NewString(),
		byID: make(map[int64]notes.Note),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	return c
}

// ID is the origin id attached to every request.
func (c *Client) ID() string { return c.id }

func (c *Client) List(ctx context.Context) ([]notes.Note, error) {
	c.mu.Lock()
	if c.listOK {
		out := append([]notes.Note(nil), c.list...)
		c.mu.Unlock()
		return out, nil
	}
	gen := c.gen
	c.mu.Unlock()

	var items []notes.Note
	if _, err := c.do(ctx, http.MethodGet, "/notes", nil, &items); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	c.mu.Lock()
	if c.gen == gen {
		c.list, c.listOK = items, true
		for _, n := range items {
			c.byID[n.ID] = n
		}
	}
	c.mu.Unlock()
	return append([]notes.Note(nil), items...), nil
}

func (c *Client) Get(ctx context.Context, id int64) (notes.Note, error) {
	c.mu.Lock()
	n, ok := c.byID[id]
	gen := c.gen
	c.mu.Unlock()
	if ok {
		return n, nil
	}

	if _, err := c.do(ctx, http.MethodGet, notePath(id), nil, &n); err != nil {
		return notes.Note{}, fmt.Errorf("get note %d: %w", id, err)
	}
	c.mu.Lock()
	if c.gen == gen {
		c.byID[id] = n
	}
	c.mu.Unlock()
	return n, nil
}

func (c *Client) Create(ctx context.Context, in notes.NewNote) (notes.Note, error) {
	var n notes.Note
	if _, err := c.do(ctx, http.MethodPost, "/notes", in, &n); err != nil {
		return notes.Note{}, fmt.Errorf("create note: %w", err)
	}
	c.mu.Lock()
	c.gen++
	c.listOK = false
	c.byID[n.ID] = n
	c.mu.Unlock()
	return n, nil
}

func (c *Client) Update(ctx context.Context, id int64, p notes.NotePatch) (notes.Note, error) {
	var n notes.Note
	if _, err := c.do(ctx, http.MethodPatch, notePath(id), p, &n); err != nil {
		return notes.Note{}, fmt.Errorf("update note %d: %w", id, err)
	}
	c.mu.Lock()
	c.gen++
	c.listOK = false
	c.byID[id] = n
	c.mu.Unlock()
	return n, nil
}

// Delete reports false when the note did not exist.
func (c *Client) Delete(ctx context.Context, id int64) (bool, error) {
	_, err := c.do(ctx, http.MethodDelete, notePath(id), nil, nil)
	if errors.Is(err, ErrNotFound) {
		c.forget(id)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete note %d: %w", id, err)
	}
	c.forget(id)
	return true, nil
}

// Invalidate drops every cached query.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.listOK = false
	c.list = nil
	c.byID = make(map[int64]notes.Note)
	c.mu.Unlock()
}

// Listen subscribes to change events made by other clients. Each one
// invalidates the cache before fn is called. The server does not echo this
// client's own changes. It blocks until ctx is done or the connection fails.
func (c *Client) Listen(ctx context.Context, fn func(events.Message)) error {
	return events.Listen(ctx, c.wsURL(), func(m events.Message) {
		if m.Origin != c.id {
			c.log.Debugw("remote change", "type", m.Type, "id", m.ID)
			c.Invalidate()
		}
		if fn != nil {
			fn(m)
		}
	})
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	c.gen++
	c.listOK = false
	delete(c.byID, id)
	c.mu.Unlock()
}

func (c *Client) wsURL() string {
	u := c.base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws?" + events.OriginParam + "=" + url.QueryEscape(c.id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(events.OriginHeader, c.id)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	c.log.Debugw("request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 300 {
		return resp.StatusCode, statusError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		if body.Error == "" {
			return ErrInvalid
		}
		return fmt.Errorf("%w: %s", ErrInvalid, body.Error)
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}

func notePath(id int64) string {
	return "/notes/" + strconv.FormatInt(id, 10)
}
