package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"carpool-safety/internal/mylogger"
	websocketdto "carpool-safety/internal/safety-service/core/domain/websocket_dto"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/gorilla/websocket"
)

var websocketUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type EventHandle func(c *Client, e websocketdto.Event) error

// Dispatcher tracks connected driver sockets, one per driver. A reconnect
// replaces the stale socket.
type Dispatcher struct {
	clients map[string]*Client
	sync.RWMutex
	ctx      context.Context
	log      mylogger.Logger
	eh       EventHandler
	handlers map[string]EventHandle
}

var _ ports.INotifyWebsocket = (*Dispatcher)(nil)

func NewDispatcher(ctx context.Context, log mylogger.Logger, eh EventHandler) *Dispatcher {
	return &Dispatcher{
		clients:  make(map[string]*Client),
		ctx:      ctx,
		log:      log,
		eh:       eh,
		handlers: make(map[string]EventHandle),
	}
}

func (d *Dispatcher) InitHandler() {
	d.handlers[EventAuth] = d.eh.AuthHandler
	d.handlers[EventSpeedSample] = d.eh.SpeedSampleHandler
	d.handlers[EventWarningDismissed] = d.eh.WarningDismissedHandler
}

func (d *Dispatcher) WsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := d.log.Action("wsHandler")
		driverId := r.PathValue("driver_id")
		if driverId == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade", err)
			return
		}

		client := NewClient(d.ctx, conn, d, driverId)
		d.AddClient(client)
		go client.ReadMessage()
		go client.WriteMessage()
		log.Info("driver socket connected", "driver_id", driverId)
	}
}

func (d *Dispatcher) route(c *Client, e websocketdto.Event) error {
	d.RLock()
	authed := c.authed
	d.RUnlock()

	if !authed && e.Type != EventAuth {
		return errors.New("authenticate first")
	}
	handler, ok := d.handlers[e.Type]
	if !ok {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return handler(c, e)
}

func (d *Dispatcher) AddClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	if existing, ok := d.clients[client.driverId]; ok {
		existing.cancel()
	}
	d.clients[client.driverId] = client
}

func (d *Dispatcher) RemoveClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	client.cancel()
	if d.clients[client.driverId] == client {
		delete(d.clients, client.driverId)
	}
}

// WriteToDriver pushes an event to the driver's socket. Drivers without an
// authenticated socket simply miss the push.
func (d *Dispatcher) WriteToDriver(driverId string, msg websocketdto.Event) {
	d.RLock()
	client, ok := d.clients[driverId]
	authed := ok && client.authed
	d.RUnlock()

	if authed {
		client.Send(msg)
	}
}

func (d *Dispatcher) ConnectedDrivers() int {
	d.RLock()
	defer d.RUnlock()
	return len(d.clients)
}
