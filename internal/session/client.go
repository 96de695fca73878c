// internal/session/client.go
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 10 * time.Second
	sendBuffer   = 64
)

// Client is the coder/websocket implementation of Conn. One Client
// exists per accepted socket; its identity comes from the verified
// auth token, never from message payloads.
type Client struct {
	ws     *websocket.Conn
	userID uuid.UUID
	name   string

	send      chan ServerMessage
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an accepted websocket for the given authenticated
// user and starts its write pump.
func NewClient(ws *websocket.Conn, userID uuid.UUID, name string) *Client {
	c := &Client{
		ws:     ws,
		userID: userID,
		name:   name,
		send:   make(chan ServerMessage, sendBuffer),
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *Client) UserID() uuid.UUID { return c.userID }
func (c *Client) Name() string      { return c.name }

// Send queues msg for delivery. A peer too slow to drain its buffer is
// closed rather than allowed to stall a broadcast.
func (c *Client) Send(msg ServerMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		logrus.WithField("user_id", c.userID).Warn("send buffer full, closing connection")
		c.close(websocket.StatusPolicyViolation, "too slow")
	}
}

// Kick closes the connection with a policy-violation close frame. Used
// when the user connects from another session.
func (c *Client) Kick(reason string) {
	c.close(websocket.StatusPolicyViolation, reason)
}

// ReadLoop reads frames until the socket closes, dispatching each to
// the coordinator, then runs disconnect cleanup. It blocks; the server
// handler runs it on the request goroutine.
func (c *Client) ReadLoop(ctx context.Context, coord *Coordinator) {
	defer func() {
		c.close(websocket.StatusNormalClosure, "")
		coord.HandleDisconnect(context.WithoutCancel(ctx), c)
	}()
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		coord.HandleMessage(ctx, c, data)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				logrus.WithError(err).Error("marshal outbound message")
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err = c.ws.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close(code, reason)
	})
}
