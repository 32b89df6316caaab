package ports

import (
	"context"

	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TripEvents         = "trip.*"
	NotificationDriver = "notification.driver"
)

type ISafetyBroker interface {
	Close() error
	PublishDriverNotification(ctx context.Context, msg messagebrokerdto.DriverNotification) error

	ConsumeTripEvents(ctx context.Context, queue string) (<-chan amqp.Delivery, error)
	ConsumeDriverNotifications(ctx context.Context, queue string) (<-chan amqp.Delivery, error)
}
