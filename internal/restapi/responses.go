package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"weekendest.com/stations/internal/gtfs"
	"weekendest.com/stations/internal/logging"
	"weekendest.com/stations/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(&w)
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) sendUnauthorized(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	api.sendErrorWithData(w, r, code, message, nil)
}

func (api *RestAPI) sendErrorWithData(w http.ResponseWriter, r *http.Request, code int, message string, data interface{}) {
	setJSONResponseType(&w)
	w.WriteHeader(code)

	response := models.NewErrorResponse(code, message, api.Clock)
	response.Data = data

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.logger(), "failed to encode error response", err,
			slog.String("request_id", GetRequestID(r.Context())))
	}
}

// FieldErrorsData carries per-parameter validation messages.
type FieldErrorsData struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
}

func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	api.sendErrorWithData(w, r, http.StatusBadRequest, "invalid request parameters", FieldErrorsData{FieldErrors: fieldErrors})
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.logger(), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())))
	api.sendError(w, r, http.StatusInternalServerError, "internal server error")
}

// snapshotErrorResponse answers 503 while no topology is loaded and 500 for
// anything else.
func (api *RestAPI) snapshotErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, gtfs.ErrNotReady) {
		api.sendError(w, r, http.StatusServiceUnavailable, "station data is loading")
		return
	}
	api.serverErrorResponse(w, r, err)
}

func (api *RestAPI) logger() *slog.Logger {
	if api.Application != nil && api.Logger != nil {
		return api.Logger
	}
	return slog.Default()
}
