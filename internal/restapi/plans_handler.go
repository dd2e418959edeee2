package restapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"optimetro.kochimetro.org/internal/induction"
	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/store"
	"optimetro.kochimetro.org/internal/utils"
)

func (api *RestAPI) storeUnavailable(w http.ResponseWriter, r *http.Request) bool {
	if api.Store != nil {
		return false
	}
	api.sendError(w, r, http.StatusServiceUnavailable, "plan store not configured")
	return true
}

func (api *RestAPI) listPlansHandler(w http.ResponseWriter, r *http.Request) {
	if api.storeUnavailable(w, r) {
		return
	}

	limit, fieldErrors := utils.ParseMaxCount(r.URL.Query(), models.DefaultMaxCountForPlans, models.MaxAllowedCount, nil)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	// One extra row tells us whether the limit cut the listing short.
	plans, err := api.Store.ListPlans(r.Context(), limit+1)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	limitExceeded := len(plans) > limit
	if limitExceeded {
		plans = plans[:limit]
	}
	api.sendList(w, r, plans, limitExceeded)
}

func (api *RestAPI) loadPlan(w http.ResponseWriter, r *http.Request) (*models.InductionPlan, bool) {
	if api.storeUnavailable(w, r) {
		return nil, false
	}
	id, _ := utils.GetIDFromContext(r.Context())

	plan, err := api.Store.GetPlan(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		api.sendNotFound(w, r)
		return nil, false
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return nil, false
	}
	return &plan, true
}

func (api *RestAPI) planHandler(w http.ResponseWriter, r *http.Request) {
	plan, ok := api.loadPlan(w, r)
	if !ok {
		return
	}
	api.sendEntry(w, r, plan)
}

func (api *RestAPI) exportPlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, ok := api.loadPlan(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(plan.ID+".csv")))
	w.WriteHeader(http.StatusOK)
	if err := induction.WriteCSV(w, plan); err != nil {
		logging.LogError(api.requestLogger(r), "failed to write plan csv", err, slog.String("plan_id", plan.ID))
	}
}
