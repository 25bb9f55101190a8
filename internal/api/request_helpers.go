package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/api/shared"
	"github.com/phrazzld/kanban-api/internal/result"
)

// pathUUID extracts a UUID path parameter. On failure it writes a 400
// naming the parameter and returns false.
func pathUUID(w http.ResponseWriter, r *http.Request, paramName string, log *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", raw))
		shared.RespondWithValidationErrors(w, r, []result.ValidationError{{
			Identifier: paramName,
			Message:    "must be a valid UUID",
		}})
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate parses the JSON body into req and runs its validate
// tags. On failure it writes a 400 and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}, log *slog.Logger) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		log.Debug("malformed request body", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithValidationErrors(w, r, shared.ValidationErrors(err))
		return false
	}
	return true
}

// respondWithOutcome writes a non-success result: 404 with its message or 400
// with its field errors. It returns false when res is a success and nothing
// was written.
func respondWithOutcome[T any](w http.ResponseWriter, r *http.Request, res result.Result[T]) bool {
	switch res.Status {
	case result.StatusNotFound:
		shared.RespondWithError(w, r, http.StatusNotFound, res.Message)
		return true
	case result.StatusInvalid:
		shared.RespondWithValidationErrors(w, r, res.Errors)
		return true
	default:
		return false
	}
}
