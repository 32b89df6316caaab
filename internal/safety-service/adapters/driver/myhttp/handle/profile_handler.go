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

type ProfileHandler struct {
	profileService ports.ISafetyProfileService
	mylog          mylogger.Logger
}

func NewProfileHandler(profileService ports.ISafetyProfileService, mylog mylogger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		mylog:          mylog,
	}
}

// GetProfile returns the driver's aggregated safety profile.
func (ph *ProfileHandler) GetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverId := r.PathValue("driver_id")

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		profile, err := ph.profileService.GetProfile(ctx, driverId)
		if err != nil {
			ph.mylog.Action("GetProfile").Error("failed to get safety profile", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		jsonResponse(w, http.StatusOK, toProfileDto(profile))
	}
}

// RateDriver stores a rider's post-trip rating and refreshes the driver's
// safety profile with the new average.
func (ph *ProfileHandler) RateDriver() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := ph.mylog.Action("RateDriver")
		driverId := r.PathValue("driver_id")

		req := dto.RateDriverRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		if err := ph.profileService.RateDriver(ctx, driverId, req); err != nil {
			mylog.Error("failed to rate driver", err, "driver_id", driverId)
			JsonError(w, statusFromError(err), err)
			return
		}

		mylog.Info("driver rated", "driver_id", driverId, "rating", req.Rating)
		jsonResponse(w, http.StatusCreated, map[string]string{
			"msg":       "rating recorded",
			"driver_id": driverId,
		})
	}
}
