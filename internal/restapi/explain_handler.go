package restapi

import (
	"net/http"

	"optimetro.kochimetro.org/internal/induction"
)

func (api *RestAPI) explainHandler(w http.ResponseWriter, r *http.Request) {
	var req induction.DecisionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		api.bodyErrorResponse(w, r, err)
		return
	}
	if fieldErrors := req.Validate(); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	api.sendEntry(w, r, induction.ExplainDecision(req))
}
