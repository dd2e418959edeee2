package restapi

import (
	"optimetro.kochimetro.org/internal/app"
)

// RestAPI serves the operations endpoints on top of the shared Application.
type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI builds the API and its per-key rate limiter.
func NewRestAPI(app *app.Application) *RestAPI {
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, app.Clock),
	}
}

// Shutdown stops the rate limiter's cleanup goroutine.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
