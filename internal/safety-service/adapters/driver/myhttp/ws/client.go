package ws

import (
	"context"
	"encoding/json"
	"time"

	websocketdto "carpool-safety/internal/safety-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

const (
	authTimeout   = 5 * time.Second
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = 30 * time.Second
	maxMessageLen = 1024
)

type Client struct {
	ctx      context.Context
	cancel   context.CancelFunc
	conn     *websocket.Conn
	dis      *Dispatcher
	egress   chan websocketdto.Event
	driverId string
	authed   bool // guarded by dis mutex for cross-goroutine reads
}

func NewClient(ctx context.Context, conn *websocket.Conn, dis *Dispatcher, driverId string) *Client {
	cctx, cancel := context.WithCancel(ctx)
	return &Client{
		ctx:      cctx,
		cancel:   cancel,
		conn:     conn,
		dis:      dis,
		egress:   make(chan websocketdto.Event, 16),
		driverId: driverId,
	}
}

// ReadMessage pumps inbound events to the dispatcher. The first event must be
// an auth within authTimeout or the socket is dropped.
func (c *Client) ReadMessage() {
	defer c.dis.RemoveClient(c)

	c.conn.SetReadLimit(maxMessageLen)
	_ = c.conn.SetReadDeadline(time.Now().Add(authTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req websocketdto.Event
		if err := json.Unmarshal(payload, &req); err != nil {
			c.SendError("malformed event")
			continue
		}

		if err := c.dis.route(c, req); err != nil {
			c.SendError(err.Error())
			if !c.authed {
				break
			}
		}
	}
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case event, ok := <-c.egress:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// markAuthed records the successful handshake and lifts the auth deadline.
func (c *Client) markAuthed() {
	c.dis.Lock()
	c.authed = true
	c.dis.Unlock()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
}

// Send queues an event for the write pump. A slow consumer loses events
// rather than blocking the caller.
func (c *Client) Send(event websocketdto.Event) {
	select {
	case c.egress <- event:
	case <-c.ctx.Done():
	default:
	}
}

func (c *Client) SendError(msg string) {
	data, _ := json.Marshal(websocketdto.ErrorMessage{Type: EventError, Message: msg})
	c.Send(websocketdto.Event{Type: EventError, Data: data})
}
