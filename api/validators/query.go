package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
)

func fieldError(key, message string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

// queryValue returns fallback for a missing or blank parameter and the
// parsed value otherwise.
func queryValue[T any](r *http.Request, key string, fallback T, parse func(string) (T, error), message string) (T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		var zero T
		return zero, fieldError(key, message, nil)
	}
	return v, nil
}

// ParseQueryInt reads an integer in [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	v, err := queryValue(r, key, defaultVal, strconv.Atoi, "query parameter must be numeric")
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, fieldError(key, "query parameter out of range", map[string]any{"min": min, "max": max})
	}
	return v, nil
}

func ParseQueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	return queryValue(r, key, defaultVal, strconv.ParseBool, "query parameter must be a boolean")
}

// ParseUUIDParam reads a chi route parameter.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, fieldError(key, key+" is required", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fieldError(key, "invalid "+key, nil)
	}
	return id, nil
}
