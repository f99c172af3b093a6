package httpadapter

import (
	"net/http"

	"github.com/ntria/tax-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSchemaViolation):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrGenerationUnavailable):
		// exhausting every provider is a dependency outage, not an
		// internal fault, so it maps to 503 instead of 500
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
