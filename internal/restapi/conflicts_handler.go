package restapi

import (
	"fmt"
	"net/http"
	"strings"

	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/optimizer"
	"optimetro.kochimetro.org/internal/utils"
)

// conflictsHandler proxies the optimizer's conflict list. With trainIds it
// looks up each train instead, falling back to the local rule per train.
func (api *RestAPI) conflictsHandler(w http.ResponseWriter, r *http.Request) {
	raw, ok := r.URL.Query()["trainIds"]
	if !ok {
		api.proxy(w, r, "Failed to fetch conflicts", api.Optimizer.Conflicts)
		return
	}

	trainIDs, fieldErrors := parseTrainIDs(raw)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	results, err := api.Optimizer.ConflictsForTrains(r.Context(), trainIDs)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendList(w, r, results, false)
}

func parseTrainIDs(values []string) ([]string, map[string][]string) {
	var ids []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			if err := utils.ValidateID(id); err != nil {
				return nil, map[string][]string{"trainIds": {err.Error()}}
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	switch {
	case len(ids) == 0:
		return nil, map[string][]string{"trainIds": {"trainIds must name at least one train"}}
	case len(ids) > models.MaxAllowedCount:
		return nil, map[string][]string{"trainIds": {fmt.Sprintf("at most %d trains per request", models.MaxAllowedCount)}}
	}
	return ids, nil
}

func (api *RestAPI) trainConflictsHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := utils.GetIDFromContext(r.Context())
	api.sendEntry(w, r, api.Optimizer.ConflictsForTrain(r.Context(), id))
}

type resolveResult struct {
	Message string `json:"message"`
}

func (api *RestAPI) resolveConflictHandler(w http.ResponseWriter, r *http.Request) {
	var req optimizer.ResolveRequest
	if err := decodeJSONBody(r, &req); err != nil {
		api.bodyErrorResponse(w, r, err)
		return
	}
	if req.ConflictID == "" {
		api.validationErrorResponse(w, r, map[string][]string{"conflictId": {"conflictId is required"}})
		return
	}
	message, err := optimizer.ResolveConflict(req)
	if err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"action": {"Invalid action"}})
		return
	}
	api.sendEntry(w, r, resolveResult{Message: message})
}
