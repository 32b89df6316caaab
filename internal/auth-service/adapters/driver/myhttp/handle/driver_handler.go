package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"carpool-safety/internal/auth-service/core/domain/dto"
	"carpool-safety/internal/auth-service/core/myerrors"
	"carpool-safety/internal/auth-service/core/service"
	"carpool-safety/internal/mylogger"
)

type DriverHandler struct {
	authService *service.AuthService
	mylog       mylogger.Logger
}

func NewDriverHandler(authService *service.AuthService, mylog mylogger.Logger) *DriverHandler {
	return &DriverHandler{
		authService: authService,
		mylog:       mylog,
	}
}

// Register creates the driver account plus its enforcement row.
func (dh *DriverHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var regReq dto.DriverRegistrationRequest

		mylog := dh.mylog.Action("RegisterDriver")

		if err := json.NewDecoder(r.Body).Decode(&regReq); err != nil {
			mylog.Error("Failed to parse driver registration", err)
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		userId, accessToken, err := dh.authService.RegisterDriver(ctx, regReq)
		if err != nil {
			if errors.Is(err, myerrors.ErrEmailRegistered) ||
				errors.Is(err, myerrors.ErrUsernameTaken) ||
				errors.Is(err, myerrors.ErrFieldIsEmpty) {
				jsonError(w, http.StatusBadRequest, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]string{
			"msg":        fmt.Sprintf("driver %s registered successfully!", regReq.Username),
			"jwt_access": accessToken,
			"userId":     userId,
		})
		mylog.Info("Driver successfully registered!")
	}
}
