package services

import (
	"context"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"
)

// DriverGate fronts the driver status switch with the eligibility check.
type DriverGate struct {
	mylog   mylogger.Logger
	drivers ports.IDriverRepo
	susp    ports.ISuspensionService
}

func NewDriverGate(log mylogger.Logger, drivers ports.IDriverRepo, susp ports.ISuspensionService) *DriverGate {
	return &DriverGate{
		mylog:   log,
		drivers: drivers,
		susp:    susp,
	}
}

// GoOnline flips the driver to AVAILABLE only when the gate allows it. When
// blocked, the eligibility carries the suspension for the handler to return.
func (dg *DriverGate) GoOnline(ctx context.Context, driverId string) (model.Eligibility, error) {
	log := dg.mylog.Action("GoOnline")

	exists, err := dg.drivers.Exists(ctx, driverId)
	if err != nil {
		return model.Eligibility{}, err
	}
	if !exists {
		return model.Eligibility{}, myerrors.ErrDriverNotFound
	}

	elig, err := dg.susp.CanDriverGoOnline(ctx, driverId)
	if err != nil {
		return model.Eligibility{}, err
	}
	if !elig.Allowed {
		log.Info("driver blocked from going online", "driver_id", driverId, "reason", elig.Reason)
		return elig, myerrors.ErrDriverSuspended
	}

	if err := dg.drivers.SetStatus(ctx, driverId, model.DriverAvailable); err != nil {
		log.Error("cannot set driver status", err, "driver_id", driverId)
		return model.Eligibility{}, err
	}
	log.Info("driver online", "driver_id", driverId)
	return elig, nil
}

func (dg *DriverGate) GoOffline(ctx context.Context, driverId string) error {
	log := dg.mylog.Action("GoOffline")

	exists, err := dg.drivers.Exists(ctx, driverId)
	if err != nil {
		return err
	}
	if !exists {
		return myerrors.ErrDriverNotFound
	}

	if err := dg.drivers.SetStatus(ctx, driverId, model.DriverOffline); err != nil {
		log.Error("cannot set driver status", err, "driver_id", driverId)
		return err
	}
	log.Info("driver offline", "driver_id", driverId)
	return nil
}
