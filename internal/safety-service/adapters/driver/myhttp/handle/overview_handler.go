package handle

import (
	"context"
	"net/http"
	"time"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/services"
)

type OverviewHandler struct {
	overviewService *services.OverviewService
	mylog           mylogger.Logger
}

func NewOverviewHandler(overviewService *services.OverviewService, mylog mylogger.Logger) *OverviewHandler {
	return &OverviewHandler{
		overviewService: overviewService,
		mylog:           mylog,
	}
}

// GetOverview returns the enforcement dashboard counters.
func (oh *OverviewHandler) GetOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(context.Background(), WaitTime*time.Second)
		defer cancel()

		overview, err := oh.overviewService.GetOverview(ctx)
		if err != nil {
			oh.mylog.Action("GetOverview").Error("failed to build overview", err)
			JsonError(w, http.StatusInternalServerError, err)
			return
		}

		jsonResponse(w, http.StatusOK, overview)
	}
}
