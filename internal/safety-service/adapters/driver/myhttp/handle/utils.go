package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"carpool-safety/internal/safety-service/core/myerrors"
)

const (
	WaitTime = 10
)

// jsonResponse writes the given data as a JSON-encoded HTTP response with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// JsonError writes an error response as JSON with the specified HTTP status code.
func JsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

// statusFromError maps the service error sentinels onto HTTP status codes.
// Anything unrecognized is a 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, myerrors.ErrDriverNotFound),
		errors.Is(err, myerrors.ErrStrikeNotFound),
		errors.Is(err, myerrors.ErrSuspensionNotFound),
		errors.Is(err, myerrors.ErrAppealNotFound),
		errors.Is(err, myerrors.ErrTripNotFound),
		errors.Is(err, myerrors.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, myerrors.ErrFieldIsEmpty),
		errors.Is(err, myerrors.ErrInvalidSeverity),
		errors.Is(err, myerrors.ErrInvalidType),
		errors.Is(err, myerrors.ErrInvalidDecision),
		errors.Is(err, myerrors.ErrInvalidRating),
		errors.Is(err, myerrors.ErrAppealMissingRef):
		return http.StatusBadRequest
	case errors.Is(err, myerrors.ErrStrikeNotActive),
		errors.Is(err, myerrors.ErrSuspensionNotActive),
		errors.Is(err, myerrors.ErrAppealNotPending),
		errors.Is(err, myerrors.ErrAppealAlreadyPending),
		errors.Is(err, myerrors.ErrAppealWindowExpired),
		errors.Is(err, myerrors.ErrTripAlreadyActive):
		return http.StatusConflict
	case errors.Is(err, myerrors.ErrDriverSuspended),
		errors.Is(err, myerrors.ErrAppealNotOwned):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
