package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/optimizer"
)

const optimizerNotConfigured = "Induction API URL not configured"

type proxyCall func(ctx context.Context) (json.RawMessage, error)

// proxy forwards one call to the optimizer service and relays its JSON
// payload as the response entry.
func (api *RestAPI) proxy(w http.ResponseWriter, r *http.Request, failure string, call proxyCall) {
	payload, err := call(r.Context())
	if errors.Is(err, optimizer.ErrNotConfigured) {
		api.sendError(w, r, http.StatusServiceUnavailable, optimizerNotConfigured)
		return
	}
	if err != nil {
		logging.LogError(api.requestLogger(r), "optimizer call failed", err, slog.String("path", r.URL.Path))
		api.sendError(w, r, http.StatusInternalServerError, failure)
		return
	}
	api.sendEntry(w, r, payload)
}

func (api *RestAPI) inductionRunHandler(w http.ResponseWriter, r *http.Request) {
	api.proxy(w, r, "Failed to run induction optimization", api.Optimizer.RunInduction)
}

func (api *RestAPI) trainHandler(w http.ResponseWriter, r *http.Request) {
	api.proxy(w, r, "Failed to trigger training", api.Optimizer.Train)
}

func (api *RestAPI) stationsHandler(w http.ResponseWriter, r *http.Request) {
	api.proxy(w, r, "Failed to fetch stations", api.Optimizer.Stations)
}

func (api *RestAPI) demandForecastHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		api.bodyErrorResponse(w, r, err)
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		api.validationErrorResponse(w, r, map[string][]string{"body": {"body contains badly-formed JSON"}})
		return
	}
	api.proxy(w, r, "Failed to fetch demand forecast", func(ctx context.Context) (json.RawMessage, error) {
		return api.Optimizer.DemandForecast(ctx, body)
	})
}
