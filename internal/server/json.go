package server

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"GoJoin/internal/coordinator"
	"GoJoin/internal/engine"
	"GoJoin/internal/join"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"message": message,
		},
	})
}

// statusOf maps an execution error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrInvalidPlan),
		errors.Is(err, coordinator.ErrInvalidClause),
		errors.Is(err, coordinator.ErrNoPlans),
		errors.Is(err, join.ErrUnsupportedScoreMode),
		errors.Is(err, engine.ErrUnsupportedSortType):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrQueryTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrInvariantViolation),
		errors.Is(err, join.ErrParentFilterNotBitSet),
		errors.Is(err, join.ErrScoresNotTracked):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
