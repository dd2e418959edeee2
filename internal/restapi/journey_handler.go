package restapi

import (
	"errors"
	"net/http"
	"time"

	"optimetro.kochimetro.org/internal/journey"
)

func (api *RestAPI) journeyPlanHandler(w http.ResponseWriter, r *http.Request) {
	var req journey.Request
	if err := decodeJSONBody(r, &req); err != nil {
		api.bodyErrorResponse(w, r, err)
		return
	}

	result, err := api.Planner.Plan(req)
	var parseErr *time.ParseError
	switch {
	case err == nil:
		api.sendEntry(w, r, result)
	case errors.Is(err, journey.ErrMissingStations), errors.Is(err, journey.ErrSameStation):
		api.sendError(w, r, http.StatusBadRequest, journey.Message(err))
	case errors.As(err, &parseErr):
		api.validationErrorResponse(w, r, map[string][]string{"time": {"time must be HH:MM"}})
	case errors.Is(err, journey.ErrNoTrain), errors.Is(err, journey.ErrUnknownStation):
		api.sendError(w, r, http.StatusNotFound, journey.Message(err))
	default:
		api.serverErrorResponse(w, r, err)
	}
}
