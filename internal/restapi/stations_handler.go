package restapi

import (
	"net/http"

	"optimetro.kochimetro.org/internal/models"
	"optimetro.kochimetro.org/internal/utils"
)

func (api *RestAPI) nearbyStationsHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	lat, fieldErrors := utils.ParseFloatParam(queryParams, "lat", nil)
	lon, fieldErrors := utils.ParseFloatParam(queryParams, "lon", fieldErrors)
	radius, fieldErrors := utils.ParseFloatParam(queryParams, "radius", fieldErrors)
	maxCount, fieldErrors := utils.ParseMaxCount(queryParams, models.DefaultMaxCountForStations, models.MaxAllowedCount, fieldErrors)

	if !queryParams.Has("lat") {
		fieldErrors = addFieldError(fieldErrors, "lat", "lat is required")
	}
	if !queryParams.Has("lon") {
		fieldErrors = addFieldError(fieldErrors, "lon", "lon is required")
	}
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if radius == 0 {
		radius = models.DefaultNearbyRadiusInMeters
	}
	if locationErrors := utils.ValidateLocationParams(lat, lon, radius); len(locationErrors) > 0 {
		api.validationErrorResponse(w, r, locationErrors)
		return
	}

	api.GtfsManager.RLock()
	stations := api.GtfsManager.NearbyStations(lat, lon, radius, maxCount+1)
	api.GtfsManager.RUnlock()

	limitExceeded := len(stations) > maxCount
	if limitExceeded {
		stations = stations[:maxCount]
	}
	api.sendList(w, r, stations, limitExceeded)
}

func addFieldError(fieldErrors map[string][]string, field, msg string) map[string][]string {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	fieldErrors[field] = append(fieldErrors[field], msg)
	return fieldErrors
}
