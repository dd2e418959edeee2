package restapi

import (
	"net/http"
	"strings"

	"optimetro.kochimetro.org/internal/copilot"
	"optimetro.kochimetro.org/internal/models"
)

const copilotModeFleet = "fleet"

// copilotRequest is a copilot command. Plan mode works on context; fleet mode
// works on the fleet sent inline or, when none is sent, the configured one.
type copilotRequest struct {
	Prompt       string                  `json:"prompt"`
	Mode         string                  `json:"mode,omitempty"`
	Context      *copilot.RequestContext `json:"context"`
	Trains       []models.Train          `json:"trains,omitempty"`
	JobCards     []models.JobCard        `json:"jobCards,omitempty"`
	BrandingSLAs []models.BrandingSLA    `json:"brandingSLAs,omitempty"`
	StablingBays []models.StablingBay    `json:"stablingBays,omitempty"`
	TripBlocks   []models.TripBlock      `json:"tripBlocks,omitempty"`
}

func (req copilotRequest) inlineSnapshot() *models.FleetSnapshot {
	if len(req.Trains) == 0 {
		return nil
	}
	return &models.FleetSnapshot{
		Trains:       req.Trains,
		JobCards:     req.JobCards,
		BrandingSLAs: req.BrandingSLAs,
		StablingBays: req.StablingBays,
		TripBlocks:   req.TripBlocks,
	}
}

func (api *RestAPI) copilotHandler(w http.ResponseWriter, r *http.Request) {
	var req copilotRequest
	if err := decodeJSONBody(r, &req); err != nil {
		api.bodyErrorResponse(w, r, err)
		return
	}

	fleetMode := strings.EqualFold(req.Mode, copilotModeFleet)
	fieldErrors := map[string][]string{}
	if strings.TrimSpace(req.Prompt) == "" {
		fieldErrors["prompt"] = []string{"prompt is required"}
	}
	if req.Context == nil && !fleetMode {
		fieldErrors["context"] = []string{"context is required"}
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	snapshot := req.inlineSnapshot()
	if snapshot == nil {
		snapshot = api.Fleet
	}

	cp := copilot.New(snapshot, api.Clock, api.Location)
	request := copilot.Request{Prompt: req.Prompt, Context: req.Context}

	var resp copilot.Response
	if fleetMode {
		resp = cp.Process(r.Context(), request)
	} else {
		resp = cp.ProcessWithPlan(r.Context(), request)
	}
	api.sendEntry(w, r, resp)
}

func (api *RestAPI) copilotCommandsHandler(w http.ResponseWriter, r *http.Request) {
	commands, err := copilot.Commands()
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendList(w, r, commands, false)
}
