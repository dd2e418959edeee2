package restapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/peak"
)

type peakRequest struct {
	Action string          `json:"action"`
	UserID string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

type offerResponseData struct {
	OfferID  string `json:"offerId"`
	Accepted bool   `json:"accepted"`
}

type complianceData struct {
	OfferID         string    `json:"offerId"`
	ActualTapInTime time.Time `json:"actualTapInTime"`
}

type analyzeResult struct {
	Offer   *models.PeakShiftOffer `json:"offer"`
	Message string                 `json:"message"`
}

func (api *RestAPI) peakManagementHandler(w http.ResponseWriter, r *http.Request) {
	var req peakRequest
	if err := decodeJSONBody(r, &req); err != nil {
		api.bodyErrorResponse(w, r, err)
		return
	}

	switch req.Action {
	case "analyze_behavior":
		api.analyzeBehavior(w, r, req)
	case "respond_to_offer":
		var data offerResponseData
		if !api.decodePeakData(w, r, req.Data, &data) {
			return
		}
		result, err := api.PeakManager.RespondToOffer(r.Context(), data.OfferID, data.Accepted)
		if err != nil {
			api.peakErrorResponse(w, r, err)
			return
		}
		api.sendEntry(w, r, result)
	case "verify_compliance":
		var data complianceData
		if !api.decodePeakData(w, r, req.Data, &data) {
			return
		}
		result, err := api.PeakManager.VerifyCompliance(r.Context(), data.OfferID, data.ActualTapInTime)
		if err != nil {
			api.peakErrorResponse(w, r, err)
			return
		}
		api.sendEntry(w, r, result)
	case "update_profile":
		if req.UserID == "" {
			api.validationErrorResponse(w, r, map[string][]string{"userId": {"userId is required"}})
			return
		}
		var update peak.ProfileUpdate
		if !api.decodePeakData(w, r, req.Data, &update) {
			return
		}
		profile, err := api.PeakManager.UpdateRiderProfile(r.Context(), req.UserID, update)
		if err != nil {
			api.serverErrorResponse(w, r, err)
			return
		}
		api.sendEntry(w, r, profile)
	default:
		api.validationErrorResponse(w, r, map[string][]string{"action": {"Invalid action"}})
	}
}

func (api *RestAPI) analyzeBehavior(w http.ResponseWriter, r *http.Request, req peakRequest) {
	if req.UserID == "" {
		api.validationErrorResponse(w, r, map[string][]string{"userId": {"userId is required"}})
		return
	}
	var trip peak.Trip
	if !api.decodePeakData(w, r, req.Data, &trip) {
		return
	}
	if trip.IntendedTime.IsZero() {
		api.validationErrorResponse(w, r, map[string][]string{"intendedTime": {"intendedTime is required"}})
		return
	}

	offer, err := api.PeakManager.AnalyzeRiderBehavior(r.Context(), req.UserID, trip)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	message := "No offer generated"
	if offer != nil {
		message = "Peak shift offer generated"
	}
	api.sendEntry(w, r, analyzeResult{Offer: offer, Message: message})
}

func (api *RestAPI) decodePeakData(w http.ResponseWriter, r *http.Request, raw json.RawMessage, dst interface{}) bool {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		api.validationErrorResponse(w, r, map[string][]string{"data": {"data is required"}})
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"data": {err.Error()}})
		return false
	}
	return true
}

func (api *RestAPI) peakErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, peak.ErrOfferNotFound), errors.Is(err, peak.ErrNoActiveOffer):
		api.sendError(w, r, http.StatusNotFound, peak.Message(err))
	case errors.Is(err, peak.ErrOfferProcessed), errors.Is(err, peak.ErrOfferExpired):
		api.sendError(w, r, http.StatusConflict, peak.Message(err))
	default:
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) peakManagementQueryHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("userId")
	if userID == "" {
		api.validationErrorResponse(w, r, map[string][]string{"userId": {"Missing userId parameter"}})
		return
	}

	switch query.Get("action") {
	case "profile":
		profile, ok := api.PeakManager.GetRiderProfile(userID)
		if !ok {
			api.sendNotFound(w, r)
			return
		}
		api.sendEntry(w, r, profile)
	case "offers":
		api.sendList(w, r, api.PeakManager.GetActiveOffers(userID), false)
	case "rewards":
		api.sendList(w, r, api.PeakManager.GetRewardHistory(userID), false)
	case "analytics":
		api.sendEntry(w, r, api.PeakManager.GetAnalytics())
	default:
		api.validationErrorResponse(w, r, map[string][]string{"action": {"Invalid action"}})
	}
}
