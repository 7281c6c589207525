package events

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one subscriber connection. id is the client id it announced
// when connecting; changes it made itself are not echoed back to it.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	id   string
	send chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, id string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		id:   id,
		send: make(chan []byte, sendBufferSize),
	}
}

// Run forwards broadcasts to the connection until it closes or ctx is done.
// Subscribers never send data; anything they do send closes the connection.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx = c.conn.CloseRead(ctx)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				c.hub.log.Debugw("websocket write", "client", c.id, "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				c.hub.log.Debugw("websocket ping", "client", c.id, "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
