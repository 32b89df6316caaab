package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/domain/dto"
	"carpool-safety/internal/safety-service/core/ports"
)

type SuspensionHandler struct {
	suspensionService ports.ISuspensionService
	mylog             mylogger.Logger
}

func NewSuspensionHandler(suspensionService ports.ISuspensionService, mylog mylogger.Logger) *SuspensionHandler {
	return &SuspensionHandler{
		suspensionService: suspensionService,
		mylog:             mylog,
	}
}

// ListSuspensions returns a driver's suspension history, newest first.
func (sh *SuspensionHandler) ListSuspensions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverId := r.PathValue("driver_id")

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		suspensions, err := sh.suspensionService.ListSuspensions(ctx, driverId)
		if err != nil {
			sh.mylog.Action("ListSuspensions").Error("failed to list suspensions", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusOK, toSuspensionDtos(suspensions))
	}
}

// LiftSuspension ends an active suspension early. Permanent suspensions can
// only be lifted through here or an approved appeal.
func (sh *SuspensionHandler) LiftSuspension() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := sh.mylog.Action("LiftSuspension")
		suspensionId := r.PathValue("suspension_id")

		req := dto.LiftSuspensionRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		if err := sh.suspensionService.LiftSuspension(ctx, suspensionId, req.Reason); err != nil {
			mylog.Error("failed to lift suspension", err, "suspension_id", suspensionId)
			JsonError(w, statusFromError(err), err)
			return
		}

		mylog.Info("suspension lifted", "suspension_id", suspensionId)
		jsonResponse(w, http.StatusOK, map[string]string{
			"msg":           "suspension lifted",
			"suspension_id": suspensionId,
		})
	}
}
