package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	ws "github.com/coder/websocket"
)

// OriginHeader carries the client id on API requests.
const OriginHeader = "X-Client-ID"

// OriginParam carries the client id on the subscribe URL, where browsers
// cannot set headers.
const OriginParam = "client"

// Handler upgrades connections to WebSocket and runs them as Hub clients.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // single-user tool, any origin
		})
		if err != nil {
			hub.log.Warnw("websocket accept", "error", err)
			return
		}

		id := r.URL.Query().Get(OriginParam)
		if id == "" {
			id = r.Header.Get(OriginHeader)
		}
		NewClient(hub, conn, id).Run(r.Context())
	}
}

// Origin is middleware that copies the X-Client-ID header into the request context.
func Origin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(OriginHeader); id != "" {
			r = r.WithContext(WithOrigin(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Listen dials url and calls fn for every message until ctx is done or the
// connection fails.
func Listen(ctx context.Context, url string, fn func(Message)) error {
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		fn(msg)
	}
}
