package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/evn/tracker_backendl/internal/pkg/apperrors"
)

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithAppError maps the error taxonomy onto status codes:
// access denied 403, registration required 406, everything else 500.
// Device-not-found is mapped by the ingestion handler itself (410).
func RespondWithAppError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsAccessDenied(err):
		RespondWithError(w, http.StatusForbidden, err.Error())
	case apperrors.IsRegistrationRequired(err):
		RespondWithError(w, http.StatusNotAcceptable, err.Error())
	case errors.Is(err, apperrors.ErrMissingFilter):
		// Kept as a 500 to match the existing API contract.
		RespondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
