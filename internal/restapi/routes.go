package restapi

import (
	"net/http"
	"net/http/pprof"

	"optimetro.kochimetro.org/internal/appconf"
	"optimetro.kochimetro.org/internal/models"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

// rateLimitAndValidateAPIKey combines rate limiting, API key validation, and compression
func rateLimitAndValidateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	// Create the handler chain: API key validation -> rate limiting -> compression -> final handler
	finalHandlerHttp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		finalHandler(w, r)
	})

	// Apply compression first (innermost)
	compressedHandler := CompressionMiddleware(finalHandlerHttp)

	// Then rate limiting - use the shared rate limiter instance
	var rateLimitedHandler http.Handler
	if api.rateLimiter != nil {
		rateLimitedHandler = api.rateLimiter.Handler()(compressedHandler)
	} else {
		// Fallback for tests that don't use NewRestAPI constructor
		rateLimitedHandler = compressedHandler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		rateLimitedHandler.ServeHTTP(w, r)
	})
}

// withID applies {id} validation before the standard auth and rate limits.
func withID(api *RestAPI, handler http.HandlerFunc) http.Handler {
	return rateLimitAndValidateAPIKey(api, handlerFunc(api.ValidateIDMiddleware(handler)))
}

func registerPprofHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

// SetRoutes registers all API endpoints with compression applied per route
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	// Health check endpoint - no authentication required
	mux.HandleFunc("GET /healthz", api.healthHandler)

	// Induction planning
	mux.Handle("POST /api/ai/optimize", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.optimizeHandler)))
	mux.Handle("GET /api/ai/plans", CacheControlMiddleware(models.CacheDurationShort, rateLimitAndValidateAPIKey(api, api.listPlansHandler)))
	mux.Handle("GET /api/ai/plans/{id}", CacheControlMiddleware(models.CacheDurationLong, withID(api, api.planHandler)))
	mux.Handle("GET /api/ai/plans/{id}/export", CacheControlMiddleware(models.CacheDurationLong, withID(api, api.exportPlanHandler)))
	mux.Handle("POST /api/explain", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.explainHandler)))

	// Copilot and peak-shift incentives
	mux.Handle("POST /api/ai/copilot", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.copilotHandler)))
	mux.Handle("GET /api/ai/copilot", CacheControlMiddleware(models.CacheDurationLong, rateLimitAndValidateAPIKey(api, api.copilotCommandsHandler)))
	mux.Handle("POST /api/ai/peak-management", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.peakManagementHandler)))
	mux.Handle("GET /api/ai/peak-management", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.peakManagementQueryHandler)))

	// Optimizer proxy
	mux.Handle("POST /api/induction/run", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.inductionRunHandler)))
	mux.Handle("POST /api/train", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.trainHandler)))
	mux.Handle("GET /api/stations", CacheControlMiddleware(models.CacheDurationLong, rateLimitAndValidateAPIKey(api, api.stationsHandler)))
	mux.Handle("POST /api/demand/forecast", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.demandForecastHandler)))
	mux.Handle("GET /api/conflicts", CacheControlMiddleware(models.CacheDurationShort, rateLimitAndValidateAPIKey(api, api.conflictsHandler)))
	mux.Handle("POST /api/conflicts", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.resolveConflictHandler)))
	mux.Handle("GET /api/conflicts/{id}", CacheControlMiddleware(models.CacheDurationShort, withID(api, api.trainConflictsHandler)))

	// Riders
	mux.Handle("POST /api/journeys/plan", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.journeyPlanHandler)))
	mux.Handle("GET /api/stations/nearby", CacheControlMiddleware(models.CacheDurationLong, rateLimitAndValidateAPIKey(api, api.nearbyStationsHandler)))
	mux.Handle("GET /api/gtfs/shapes/{id}", CacheControlMiddleware(models.CacheDurationLong, withID(api, api.shapesHandler)))
	mux.Handle("POST /api/chat", CacheControlMiddleware(models.CacheDurationNone, rateLimitAndValidateAPIKey(api, api.chatHandler)))

	if api.Config.Env == appconf.Development {
		registerPprofHandlers(mux)
	}
}

// SetupAPIRoutes creates and configures the API router with all middleware applied globally
func (api *RestAPI) SetupAPIRoutes() http.Handler {
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	return api.WithSecurityHeaders(mux)
}
