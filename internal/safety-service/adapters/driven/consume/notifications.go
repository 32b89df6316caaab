package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"carpool-safety/internal/mylogger"
	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"
	websocketdto "carpool-safety/internal/safety-service/core/domain/websocket_dto"
	"carpool-safety/internal/safety-service/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	driverNotificationsQ = "safety_driver_notifications"

	// websocket type
	wsNotification = "notification"
)

// NotificationBridge relays enforcement notices off the broker onto the
// driver's websocket. A driver without an open socket misses the push, which
// is fine: the ledger state behind every notice is queryable over HTTP.
type NotificationBridge struct {
	ctx        context.Context
	mylog      mylogger.Logger
	broker     ports.ISafetyBroker
	dispatcher ports.INotifyWebsocket

	mu sync.Mutex
	wg sync.WaitGroup
}

func NewNotificationBridge(
	ctx context.Context,
	mylog mylogger.Logger,
	broker ports.ISafetyBroker,
	dispatcher ports.INotifyWebsocket,
) *NotificationBridge {
	return &NotificationBridge{
		ctx:        ctx,
		mylog:      mylog,
		broker:     broker,
		dispatcher: dispatcher,
	}
}

func (nb *NotificationBridge) Run() error {
	nb.mu.Lock()
	defer nb.mu.Unlock()

	msgs, err := nb.broker.ConsumeDriverNotifications(nb.ctx, driverNotificationsQ)
	if err != nil {
		return fmt.Errorf("consume %s: %w", driverNotificationsQ, err)
	}

	go nb.loop(msgs)

	nb.mylog.Action("consumer_started").Info("notification bridge started",
		"queue", driverNotificationsQ)
	return nil
}

// Stop waits for in-flight pushes.
func (nb *NotificationBridge) Stop(_ context.Context) error {
	nb.mu.Lock()
	defer nb.mu.Unlock()

	nb.wg.Wait()
	nb.mylog.Action("shutdown_done").Info("notification bridge drained")
	return nil
}

func (nb *NotificationBridge) loop(dlv <-chan amqp.Delivery) {
	for {
		select {
		case <-nb.ctx.Done():
			nb.mylog.Info("stop bridge: context done")
			return
		case m, ok := <-dlv:
			if !ok {
				nb.mylog.Info("stop bridge: channel closed")
				return
			}
			nb.wg.Add(1)
			go func(msg amqp.Delivery) {
				defer nb.wg.Done()
				nb.push(msg)
				_ = msg.Ack(false)
			}(m)
		}
	}
}

// push is best effort. A notice that cannot be decoded or delivered is
// dropped, never redelivered.
func (nb *NotificationBridge) push(msg amqp.Delivery) {
	var n messagebrokerdto.DriverNotification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		nb.mylog.Warn("dropping malformed notification", "error", err.Error())
		return
	}

	data, err := json.Marshal(websocketdto.Notification{
		Type:    wsNotification,
		Kind:    n.Kind,
		Title:   n.Title,
		Body:    n.Body,
		Payload: n.Payload,
	})
	if err != nil {
		return
	}

	nb.dispatcher.WriteToDriver(n.DriverId, websocketdto.Event{Type: wsNotification, Data: data})
}
