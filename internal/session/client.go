package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	sendBuffer    = 128
	writeTimeout  = 5 * time.Second
	pingInterval  = 20 * time.Second
	maxFrameBytes = 32 * 1024 // inbound frames are gestures and edits, never layouts
)

// Client is one websocket participant in a diagram room. Inbound frames
// are decoded, stamped with the connection's identity and dispatched to
// the room loop; outbound messages are queued on a buffered channel
// drained by the write loop.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	UserID      string
	DisplayName string
	DiagramIRI  string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, diagramIRI, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		UserID:      userID,
		DisplayName: displayName,
		DiagramIRI:  diagramIRI,
		ClientID:    clientID,
	}
}

// Run services the connection until it closes: the write loop gets its
// own goroutine, the read loop runs on the caller's. Unregistration
// happens exactly once, when the read loop exits.
func (c *Client) Run(ctx context.Context) {
	go c.writeLoop(ctx)
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxFrameBytes)

	for {
		_, frame, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("session read ended", "user", c.UserID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			c.sendStatus("unreadable message: " + err.Error())
			continue
		}
		if msg.Type == "" {
			c.sendStatus("message type missing")
			continue
		}

		// The connection identity is authoritative; a client cannot
		// impersonate another user or address another room.
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.DiagramIRI = c.DiagramIRI

		c.hub.dispatch(c, &msg)
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, frame); err != nil {
				slog.Debug("session write ended", "user", c.UserID, "error", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, frame []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, frame)
}

// Send queues a message for the write loop. A client that cannot keep
// up loses frames rather than stalling the room loop; the next layout
// sync restores its state.
func (c *Client) Send(msg *Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "type", msg.Type, "error", err)
		return
	}

	select {
	case c.send <- frame:
	default:
		slog.Warn("dropping frame for slow client", "user", c.UserID, "type", msg.Type)
	}
}

func (c *Client) sendStatus(text string) {
	payload, _ := json.Marshal(StatusPayload{Text: text})
	c.Send(&Message{Type: TypeStatus, Payload: payload})
}
