package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseFloatParam reads a float query parameter. An absent parameter is 0.
// Parse failures are added to fieldErrors, which is allocated when nil.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	raw := strings.TrimSpace(params.Get(key))
	if raw == "" {
		return 0, fieldErrors
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if fieldErrors == nil {
			fieldErrors = make(map[string][]string)
		}
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("invalid field value for field %q", key))
		return 0, fieldErrors
	}
	return value, fieldErrors
}

// ParseMaxCount reads maxCount, falling back to defaultCount. Values outside
// [1, maxAllowed] are field errors.
func ParseMaxCount(params url.Values, defaultCount, maxAllowed int, fieldErrors map[string][]string) (int, map[string][]string) {
	raw := strings.TrimSpace(params.Get("maxCount"))
	if raw == "" {
		return defaultCount, fieldErrors
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 || value > maxAllowed {
		if fieldErrors == nil {
			fieldErrors = make(map[string][]string)
		}
		fieldErrors["maxCount"] = append(fieldErrors["maxCount"], fmt.Sprintf("maxCount must be between 1 and %d", maxAllowed))
		return defaultCount, fieldErrors
	}
	return value, fieldErrors
}

// ValidateLocationParams checks coordinate ranges and a non-negative radius.
func ValidateLocationParams(lat, lon, radius float64) map[string][]string {
	fieldErrors := make(map[string][]string)
	if lat < -90 || lat > 90 {
		fieldErrors["lat"] = []string{"latitude must be between -90 and 90"}
	}
	if lon < -180 || lon > 180 {
		fieldErrors["lon"] = []string{"longitude must be between -180 and 180"}
	}
	if radius < 0 {
		fieldErrors["radius"] = []string{"radius must be non-negative"}
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}
