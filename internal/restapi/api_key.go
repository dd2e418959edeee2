package restapi

import (
	"crypto/subtle"
	"net/http"
)

// apiKeyFromRequest reads the key from the "key" query parameter or the
// X-API-Key header.
func apiKeyFromRequest(r *http.Request) string {
	if key := r.URL.Query().Get("key"); key != "" {
		return key
	}
	return r.Header.Get("X-API-Key")
}

// RequestHasInvalidAPIKey reports whether the request lacks one of the
// configured keys.
func (api *RestAPI) RequestHasInvalidAPIKey(r *http.Request) bool {
	key := apiKeyFromRequest(r)
	if key == "" {
		return true
	}
	for _, valid := range api.Config.ApiKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return false
		}
	}
	return true
}
