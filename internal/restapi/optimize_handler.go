package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"optimetro.kochimetro.org/internal/induction"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

// optimizeRequest may carry its own snapshot and a partial config. Absent
// parts fall back to the configured snapshot and config.
type optimizeRequest struct {
	Snapshot *models.FleetSnapshot `json:"snapshot,omitempty"`
	Config   json.RawMessage       `json:"config,omitempty"`
}

type optimizeResult struct {
	Plan         *models.InductionPlan  `json:"plan"`
	Explanations []models.AIExplanation `json:"explanations"`
	Stored       bool                   `json:"stored"`
}

func (api *RestAPI) optimizeHandler(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := decodeJSONBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		api.bodyErrorResponse(w, r, err)
		return
	}

	snapshot := req.Snapshot
	if snapshot == nil {
		snapshot = api.Fleet
	}
	if snapshot == nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"snapshot": {"no fleet snapshot in the request and none configured"},
		})
		return
	}

	cfg := api.InductionConfig.Clone()
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			api.validationErrorResponse(w, r, map[string][]string{"config": {err.Error()}})
			return
		}
	}
	if err := induction.ValidateConfig(cfg); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"config": {err.Error()}})
		return
	}

	ctx := r.Context()
	logger := api.requestLogger(r)
	engine := induction.NewEngine(cfg, snapshot, api.Clock, api.Location, nil).WithLogger(logger)

	plan, err := engine.GeneratePlan(ctx)
	if errors.Is(err, induction.ErrEmptyFleet) {
		api.validationErrorResponse(w, r, map[string][]string{"snapshot": {err.Error()}})
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	result := optimizeResult{
		Plan:         plan,
		Explanations: engine.Explain(plan.Decisions),
	}
	if api.Store != nil {
		if err := api.Store.SavePlan(ctx, *plan); err != nil {
			logging.LogError(logger, "failed to store induction plan", err, slog.String("plan_id", plan.ID))
		} else {
			result.Stored = true
		}
	}

	api.sendEntry(w, r, result)
}
