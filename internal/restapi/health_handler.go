package restapi

import (
	"context"
	"net/http"
	"time"

	"optimetro.kochimetro.org/internal/gtfs"
	"optimetro.kochimetro.org/internal/models"
)

type healthStatus struct {
	Status    string            `json:"status"`
	GTFS      *gtfs.Statistics  `json:"gtfs,omitempty"`
	Checks    map[string]string `json:"checks"`
	Optimizer bool              `json:"optimizerConfigured"`
	Assistant bool              `json:"assistantConnected"`
}

func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Checks: map[string]string{}}

	if api.GtfsManager != nil {
		if api.GtfsManager.IsHealthy() {
			status.Checks["gtfs"] = "ok"
		} else {
			status.Checks["gtfs"] = "unhealthy"
			status.Status = "unhealthy"
		}
		api.GtfsManager.RLock()
		stats := api.GtfsManager.Statistics()
		api.GtfsManager.RUnlock()
		status.GTFS = &stats
	}

	if api.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := api.Store.Ping(ctx); err != nil {
			status.Checks["store"] = "unreachable"
			status.Status = "unhealthy"
		} else {
			status.Checks["store"] = "ok"
		}
	}

	status.Optimizer = api.Optimizer.Configured()
	status.Assistant = api.Assistant != nil && api.Assistant.Connected()

	if status.Status != "ok" {
		api.sendResponse(w, r, models.NewResponse(http.StatusServiceUnavailable, models.EntryData{Entry: status}, "service unavailable", api.Clock))
		return
	}
	api.sendEntry(w, r, status)
}
