package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	websocketdto "carpool-safety/internal/safety-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

type WebSocketClient struct {
	conn   *websocket.Conn
	mu     sync.Mutex // one writer at a time on the connection
	ctx    context.Context
	logger *Logger
}

func NewWebSocketClient(ctx context.Context, logger *Logger) *WebSocketClient {
	return &WebSocketClient{
		ctx:    ctx,
		logger: logger,
	}
}

func (w *WebSocketClient) Connect(url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connecting to websocket: %w", err)
	}

	w.conn = conn
	w.logger.WebSocket("connected to %s", url)
	return nil
}

func (w *WebSocketClient) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// SendEvent wraps the payload in the service's event envelope.
func (w *WebSocketClient) SendEvent(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", eventType, err)
	}

	event := websocketdto.Event{Type: eventType, Data: data}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	w.mu.Lock()
	err = w.conn.WriteMessage(websocket.TextMessage, raw)
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing %s event: %w", eventType, err)
	}

	time.Sleep(50 * time.Millisecond) // Prevent overwhelming
	return nil
}

func (w *WebSocketClient) ReadEvents(handler func(event websocketdto.Event) error) error {
	for {
		select {
		case <-w.ctx.Done():
			w.logger.WebSocket("read loop stopped: context cancelled")
			return nil
		default:
			_, payload, err := w.conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("reading message: %w", err)
			}

			var event websocketdto.Event
			if err := json.Unmarshal(payload, &event); err != nil {
				w.logger.Error("malformed event: %v", err)
				continue
			}

			if err := handler(event); err != nil {
				w.logger.Error("handling %s event: %v", event.Type, err)
			}
		}
	}
}
