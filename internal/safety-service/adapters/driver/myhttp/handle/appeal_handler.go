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

type AppealHandler struct {
	appealService ports.IAppealService
	mylog         mylogger.Logger
}

func NewAppealHandler(appealService ports.IAppealService, mylog mylogger.Logger) *AppealHandler {
	return &AppealHandler{
		appealService: appealService,
		mylog:         mylog,
	}
}

// SubmitAppeal files an appeal against a strike or suspension. Drivers can
// only appeal on their own behalf, so the authenticated user must match the
// driver in the path.
func (ah *AppealHandler) SubmitAppeal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := ah.mylog.Action("SubmitAppeal")
		driverId := r.PathValue("driver_id")

		if userId := r.Header.Get("X-UserId"); userId != driverId {
			JsonError(w, http.StatusForbidden, errors.New("appeals can only be submitted for your own account"))
			return
		}

		req := dto.SubmitAppealRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		appeal, err := ah.appealService.SubmitAppeal(ctx, ports.SubmitAppealParams{
			DriverId:     driverId,
			StrikeId:     req.StrikeId,
			SuspensionId: req.SuspensionId,
			Reason:       req.Reason,
			Evidence:     req.Evidence,
		})
		if err != nil {
			mylog.Error("failed to submit appeal", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		mylog.Info("appeal submitted", "appeal_id", appeal.ID, "driver_id", driverId)
		jsonResponse(w, http.StatusCreated, toAppealDto(appeal))
	}
}

// ListAppeals returns every appeal a driver has filed, newest first.
func (ah *AppealHandler) ListAppeals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverId := r.PathValue("driver_id")

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		appeals, err := ah.appealService.ListAppeals(ctx, driverId)
		if err != nil {
			ah.mylog.Action("ListAppeals").Error("failed to list appeals", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusOK, toAppealDtos(appeals))
	}
}

// ListPendingAppeals returns the admin review queue, oldest first.
func (ah *AppealHandler) ListPendingAppeals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		appeals, err := ah.appealService.ListPendingAppeals(ctx)
		if err != nil {
			ah.mylog.Action("ListPendingAppeals").Error("failed to list pending appeals", err)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusOK, toAppealDtos(appeals))
	}
}

// ReviewAppeal records an admin decision on a pending appeal. The reviewer
// is taken from the authenticated user, not the request body.
func (ah *AppealHandler) ReviewAppeal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := ah.mylog.Action("ReviewAppeal")
		appealId := r.PathValue("appeal_id")
		reviewerId := r.Header.Get("X-UserId")

		req := dto.ReviewAppealRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		appeal, err := ah.appealService.ReviewAppeal(ctx, appealId, reviewerId, model.AppealStatus(req.Decision), req.Resolution)
		if err != nil {
			mylog.Error("failed to review appeal", err, "appeal_id", appealId)
			JsonError(w, statusFromError(err), err)
			return
		}

		mylog.Info("appeal reviewed",
			"appeal_id", appeal.ID,
			"decision", string(appeal.Status),
			"reviewed_by", reviewerId)
		jsonResponse(w, http.StatusOK, toAppealDto(appeal))
	}
}
