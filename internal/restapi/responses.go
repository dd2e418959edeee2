package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"optimetro.kochimetro.org/internal/logging"
	"optimetro.kochimetro.org/internal/models"
)

const maxRequestBodySize = 1 << 20

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.Code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.requestLogger(r), "failed to encode response", err)
	}
}

func (api *RestAPI) sendEntry(w http.ResponseWriter, r *http.Request, entry interface{}) {
	api.sendResponse(w, r, models.NewEntryResponse(entry, api.Clock))
}

func (api *RestAPI) sendList(w http.ResponseWriter, r *http.Request, list interface{}, limitExceeded bool) {
	api.sendResponse(w, r, models.NewListResponse(list, limitExceeded, api.Clock))
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, text string) {
	api.sendResponse(w, r, models.NewErrorResponse(code, text, api.Clock))
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.requestLogger(r), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	api.sendResponse(w, r, models.NewValidationErrorResponse(fieldErrors, api.Clock))
}

func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

// requestLogger returns the request-scoped logger when the logging
// middleware set one, else the application logger.
func (api *RestAPI) requestLogger(r *http.Request) *slog.Logger {
	if logger := logging.FromContext(r.Context()); logger != slog.Default() {
		return logger
	}
	if api.Logger != nil {
		return api.Logger
	}
	return slog.Default()
}

var errEmptyBody = errors.New("request body must not be empty")

// decodeJSONBody reads a single JSON object from the request into dst.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("body contains badly-formed JSON: %w", err)
	}
	return nil
}

// bodyErrorResponse answers 400 for a body decodeJSONBody rejected.
func (api *RestAPI) bodyErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.validationErrorResponse(w, r, map[string][]string{"body": {err.Error()}})
}
