package bm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"
	"carpool-safety/internal/safety-service/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	tripExchangeName         = "trip_topic"         // topic, consumed
	notificationExchangeName = "notification_topic" // topic, published
	reconnInterval           = 5                    // seconds
)

type RabbitMQ struct {
	ctx          context.Context
	cfg          config.RabbitMqconfig
	mylog        mylogger.Logger
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
	mu           *sync.Mutex
}

var _ ports.ISafetyBroker = (*RabbitMQ)(nil)

func New(ctx context.Context, rabbitmqCfg config.RabbitMqconfig, mylog mylogger.Logger) (ports.ISafetyBroker, error) {
	r := &RabbitMQ{
		ctx:          ctx,
		cfg:          rabbitmqCfg,
		mylog:        mylog,
		mu:           &sync.Mutex{},
		reconnecting: false,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("rabbit connect: %w", err)
	}
	return r, nil
}

func (r *RabbitMQ) PublishDriverNotification(ctx context.Context, msg messagebrokerdto.DriverNotification) error {
	if !r.IsAlive() {
		r.mylog.Action("publish").Error("amqp not alive", errors.New("amqp closed"))
		go r.reconnect(r.ctx)
		return errors.New("amqp closed")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	routingKey := fmt.Sprintf("%s.%s", ports.NotificationDriver, msg.DriverId)

	pubctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.ch.PublishWithContext(pubctx, notificationExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// ConsumeTripEvents binds a durable queue to trip_topic on trip.* and relays
// deliveries until ctx is cancelled. Acks are left to the caller.
func (r *RabbitMQ) ConsumeTripEvents(ctx context.Context, queue string) (<-chan amqp.Delivery, error) {
	return r.consume(ctx, queue, ports.TripEvents, tripExchangeName)
}

// ConsumeDriverNotifications binds a durable queue to notification_topic on
// notification.driver.*, feeding the websocket bridge.
func (r *RabbitMQ) ConsumeDriverNotifications(ctx context.Context, queue string) (<-chan amqp.Delivery, error) {
	return r.consume(ctx, queue, ports.NotificationDriver+".*", notificationExchangeName)
}

func (r *RabbitMQ) consume(ctx context.Context, queue, key, exchange string) (<-chan amqp.Delivery, error) {
	if !r.IsAlive() {
		return nil, errors.New("amqp closed")
	}
	if _, err := r.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	if err := r.ch.QueueBind(queue, key, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}
	if err := r.ch.Qos(16, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}

	deliveries, err := r.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	out := make(chan amqp.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}
	return true
}

func (r *RabbitMQ) Close() error {
	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close channel: %w", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		r.cfg.User, r.cfg.Password, r.cfg.Host, r.cfg.Port,
	)
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	// declare both exchanges up front so publish and bind never race setup
	for _, name := range []string{tripExchangeName, notificationExchangeName} {
		if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return err
		}
	}
	r.conn = conn
	r.ch = ch
	return nil
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	t := time.NewTicker(time.Duration(reconnInterval) * time.Second)
	l := r.mylog.Action("mb_reconnecting")

	for {
		select {
		case <-t.C:
			if err := r.connect(); err == nil {
				t.Stop()
				l.Action("mb_reconnection_completed").Info("reconnected")
				r.reconnecting = false
				return
			}
			l.Info("rabbitmq failed to reconnect")
		case <-ctx.Done():
			t.Stop()
			return
		}
	}
}
