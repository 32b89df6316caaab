package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"
)

type DriverHandler struct {
	gate              ports.IDriverGate
	suspensionService ports.ISuspensionService
	mylog             mylogger.Logger
}

func NewDriverHandler(gate ports.IDriverGate, suspensionService ports.ISuspensionService, mylog mylogger.Logger) *DriverHandler {
	return &DriverHandler{
		gate:              gate,
		suspensionService: suspensionService,
		mylog:             mylog,
	}
}

// GoOnline flips the driver to AVAILABLE. A suspended driver gets a 403 with
// the suspension attached so the app can show why.
func (dh *DriverHandler) GoOnline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := dh.mylog.Action("GoOnline")
		driverId := r.PathValue("driver_id")

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		elig, err := dh.gate.GoOnline(ctx, driverId)
		if err != nil {
			if errors.Is(err, myerrors.ErrDriverSuspended) {
				jsonResponse(w, http.StatusForbidden, toEligibilityDto(elig))
				return
			}
			mylog.Error("failed to bring driver online", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusAccepted, toEligibilityDto(elig))
	}
}

// GoOffline flips the driver to OFFLINE. Always allowed.
func (dh *DriverHandler) GoOffline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := dh.mylog.Action("GoOffline")
		driverId := r.PathValue("driver_id")

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		if err := dh.gate.GoOffline(ctx, driverId); err != nil {
			mylog.Error("failed to take driver offline", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusAccepted, map[string]string{
			"msg":       "driver offline",
			"driver_id": driverId,
		})
	}
}

// GetEligibility answers whether the driver may go online right now without
// changing anything. Blocked drivers still get a 200 with allowed=false.
func (dh *DriverHandler) GetEligibility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverId := r.PathValue("driver_id")

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		elig, err := dh.suspensionService.CanDriverGoOnline(ctx, driverId)
		if err != nil {
			dh.mylog.Action("GetEligibility").Error("failed to check eligibility", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusOK, toEligibilityDto(elig))
	}
}
