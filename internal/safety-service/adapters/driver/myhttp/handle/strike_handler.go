package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/domain/dto"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/ports"
)

type StrikeHandler struct {
	strikeService ports.IStrikeService
	mylog         mylogger.Logger
}

func NewStrikeHandler(strikeService ports.IStrikeService, mylog mylogger.Logger) *StrikeHandler {
	return &StrikeHandler{
		strikeService: strikeService,
		mylog:         mylog,
	}
}

// IssueStrike records a manual strike against a driver. Automatic strikes
// come in through the violation pipeline, not through here.
func (sh *StrikeHandler) IssueStrike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := sh.mylog.Action("IssueStrike")

		req := dto.IssueStrikeRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		strike, err := sh.strikeService.IssueStrike(ctx, ports.IssueStrikeParams{
			DriverId:   req.DriverId,
			TripId:     req.TripId,
			StrikeType: model.StrikeType(req.StrikeType),
			Reason:     req.Reason,
			Severity:   model.Severity(req.Severity),
		})
		if err != nil {
			mylog.Error("failed to issue strike", err, "driver_id", req.DriverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		mylog.Info("strike issued", "strike_id", strike.ID, "driver_id", strike.DriverId)
		jsonResponse(w, http.StatusCreated, toStrikeDto(strike))
	}
}

// ListStrikes returns a driver's strikes, optionally filtered by the
// status query parameter.
func (sh *StrikeHandler) ListStrikes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverId := r.PathValue("driver_id")
		status := model.StrikeStatus(r.URL.Query().Get("status"))

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		strikes, err := sh.strikeService.ListStrikes(ctx, driverId, status)
		if err != nil {
			sh.mylog.Action("ListStrikes").Error("failed to list strikes", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusOK, toStrikeDtos(strikes))
	}
}

// RemoveStrike voids an active strike, usually after a successful appeal or
// a support decision.
func (sh *StrikeHandler) RemoveStrike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := sh.mylog.Action("RemoveStrike")
		strikeId := r.PathValue("strike_id")

		req := dto.RemoveStrikeRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		if err := sh.strikeService.RemoveStrike(ctx, strikeId, req.Reason); err != nil {
			mylog.Error("failed to remove strike", err, "strike_id", strikeId)
			JsonError(w, statusFromError(err), err)
			return
		}

		mylog.Info("strike removed", "strike_id", strikeId)
		jsonResponse(w, http.StatusOK, map[string]string{
			"msg":       "strike removed",
			"strike_id": strikeId,
		})
	}
}
