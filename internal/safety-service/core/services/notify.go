package services

import (
	"context"

	"carpool-safety/internal/mylogger"
	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/stats"

	"github.com/google/uuid"
	"github.com/zoobzio/metricz"
)

// notifyDriver publishes fire-and-forget. Enforcement outcomes are already
// committed by the time this runs, so a broker failure is logged and dropped.
func notifyDriver(ctx context.Context, log mylogger.Logger, broker ports.ISafetyBroker, metrics *metricz.Registry, msg messagebrokerdto.DriverNotification) {
	if broker == nil {
		return
	}
	if msg.CorrelationId == "" {
		msg.CorrelationId = uuid.NewString()
	}
	if err := broker.PublishDriverNotification(ctx, msg); err != nil {
		metrics.Counter(stats.NotifyFailures).Inc()
		log.Warn("driver notification failed",
			"driver_id", msg.DriverId,
			"kind", msg.Kind,
			"error", err.Error())
	}
}
