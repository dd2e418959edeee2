package restapi

import (
	"errors"
	"net/http"

	"optimetro.kochimetro.org/internal/assistant"
	"optimetro.kochimetro.org/internal/logging"
)

type chatRequest struct {
	Message string `json:"message"`
	Role    string `json:"role,omitempty"`
}

type chatReply struct {
	Reply string `json:"reply"`
}

func (api *RestAPI) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		api.bodyErrorResponse(w, r, err)
		return
	}

	reply, err := api.Assistant.Reply(r.Context(), req.Message, assistant.ParseRole(req.Role))
	if errors.Is(err, assistant.ErrNotConnected) {
		api.sendError(w, r, http.StatusServiceUnavailable, assistant.NotConnectedReply)
		return
	}
	if err != nil {
		logging.LogError(api.requestLogger(r), "assistant reply failed", err)
		api.sendError(w, r, http.StatusInternalServerError, "Sorry, something went wrong.")
		return
	}
	api.sendEntry(w, r, chatReply{Reply: reply})
}
