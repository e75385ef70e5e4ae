package rest

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/domain/errors"
)

// errorBody is the wire shape for every error response.
type errorBody struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps domain errors onto HTTP statuses via their taxonomy:
// validation 400, unauthorized 401, forbidden 403, not found 404, state
// conflict 409, persistence/internal 500.
func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = errors.Code(err)
	body.Error.Message = err.Error()

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		body.Error.Message = appErr.Message
		body.Error.Details = appErr.Details
	}
	writeJSON(w, errors.GetStatusCode(err), body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, errors.NewValidationError("BAD_REQUEST", message))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		logger.Debug("request body decode failed", zap.Error(err))
		writeBadRequest(w, "request body is not valid JSON for this endpoint")
		return false
	}
	return true
}
