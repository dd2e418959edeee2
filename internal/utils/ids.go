package utils

import (
	"context"
	"errors"
	"net/http"
	"regexp"
)

const maxIDLength = 100

var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\- ]+$`)

type validatedIDKey struct{}

// ExtractIDFromParams returns the {id} path value.
func ExtractIDFromParams(r *http.Request) string {
	return r.PathValue("id")
}

// ValidateID rejects empty, oversized and oddly formed ids.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	if len(id) > maxIDLength {
		return errors.New("id is too long")
	}
	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}
	return nil
}

func WithValidatedID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, validatedIDKey{}, id)
}

// GetIDFromContext returns the id stored by WithValidatedID.
func GetIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(validatedIDKey{}).(string)
	return id, ok
}
