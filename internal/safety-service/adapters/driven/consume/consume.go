package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"carpool-safety/internal/mylogger"
	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	tripEventsQ = "safety_trip_events"

	tripStarted   = "trip.started"
	tripCompleted = "trip.completed"
	tripCancelled = "trip.cancelled"
)

// TripEventsConsumer follows the trip lifecycle published by the trip
// service: starts open telemetry sessions, completions and cancellations
// close them and settle the trip row.
type TripEventsConsumer struct {
	ctx       context.Context
	mylog     mylogger.Logger
	broker    ports.ISafetyBroker
	telemetry ports.ITelemetryService
	trips     ports.ITripRepo
	profiles  ports.ISafetyProfileService

	mu sync.Mutex
	wg sync.WaitGroup
}

func New(
	ctx context.Context,
	mylog mylogger.Logger,
	broker ports.ISafetyBroker,
	telemetry ports.ITelemetryService,
	trips ports.ITripRepo,
	profiles ports.ISafetyProfileService,
) *TripEventsConsumer {
	return &TripEventsConsumer{
		ctx:       ctx,
		mylog:     mylog,
		broker:    broker,
		telemetry: telemetry,
		trips:     trips,
		profiles:  profiles,
	}
}

func (c *TripEventsConsumer) Run() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.mylog.Action("trip-events-run")

	msgs, err := c.broker.ConsumeTripEvents(c.ctx, tripEventsQ)
	if err != nil {
		return fmt.Errorf("consume %s: %w", tripEventsQ, err)
	}

	go c.loop(msgs, c.processTripEvent)

	l.Action("consumer_started").Info("trip events consumer started",
		"queue", tripEventsQ, "binding", ports.TripEvents)
	return nil
}

// Stop waits for in-flight handlers. The broker itself is shared and closed
// by the service shutdown path.
func (c *TripEventsConsumer) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wg.Wait()
	c.mylog.Action("shutdown_done").Info("trip events consumer drained")
	return nil
}

func (c *TripEventsConsumer) loop(
	dlv <-chan amqp.Delivery,
	processor func(amqp.Delivery) (requeue bool, err error),
) {
	for {
		select {
		case <-c.ctx.Done():
			c.mylog.Info("stop consumer: context done")
			return
		case m, ok := <-dlv:
			if !ok {
				c.mylog.Info("stop consumer: channel closed")
				return
			}
			c.wg.Add(1)
			go func(msg amqp.Delivery) {
				defer c.wg.Done()
				requeue, err := processor(msg)
				if err != nil {
					c.mylog.Error("process error", err)
					_ = msg.Nack(false, requeue)
					return
				}
				_ = msg.Ack(false)
			}(m)
		}
	}
}

func (c *TripEventsConsumer) processTripEvent(msg amqp.Delivery) (bool, error) {
	var ev messagebrokerdto.TripEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return false, fmt.Errorf("decode trip event: %w", err)
	}

	kind := msg.RoutingKey
	if kind == "" {
		kind = ev.EventType
	}

	at, err := time.Parse(time.RFC3339, ev.Timestamp)
	if err != nil {
		at = time.Now().UTC()
	}

	switch kind {
	case tripStarted:
		if err := c.telemetry.StartTrip(c.ctx, ev.DriverId, ev.TripId); err != nil {
			return false, fmt.Errorf("start trip %s: %w", ev.TripId, err)
		}
		return false, nil
	case tripCompleted:
		return c.finish(ev, at, true)
	case tripCancelled:
		return c.finish(ev, at, false)
	default:
		c.mylog.Action("processTripEvent").Warn("unknown trip event", "routing_key", kind)
		return false, nil
	}
}

func (c *TripEventsConsumer) finish(ev messagebrokerdto.TripEvent, at time.Time, completed bool) (bool, error) {
	settle := c.trips.Cancel
	if completed {
		settle = c.trips.Complete
	}

	if err := settle(c.ctx, ev.TripId, at); err != nil {
		// the end event can outrun the start event; register the trip first
		if errors.Is(err, myerrors.ErrTripNotFound) {
			if err := c.trips.UpsertStarted(c.ctx, ev.TripId, ev.DriverId, at); err != nil {
				return true, fmt.Errorf("register trip %s: %w", ev.TripId, err)
			}
			if err := settle(c.ctx, ev.TripId, at); err != nil {
				return true, fmt.Errorf("settle trip %s: %w", ev.TripId, err)
			}
		} else {
			return true, fmt.Errorf("settle trip %s: %w", ev.TripId, err)
		}
	}

	_ = c.telemetry.EndTrip(c.ctx, ev.DriverId)

	if completed {
		if _, err := c.profiles.UpdateDriverSafetyProfile(c.ctx, ev.DriverId); err != nil {
			c.mylog.Action("processTripEvent").Warn("profile refresh failed",
				"driver_id", ev.DriverId, "error", err.Error())
		}
	}
	return false, nil
}
