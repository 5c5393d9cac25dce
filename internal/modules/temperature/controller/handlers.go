package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"thermolog-server/internal/modules/temperature/types"
	"thermolog-server/internal/utils"
)

type ingestResponse struct {
	Message string `json:"message"`
	SavedID string `json:"savedId"`
}

func (c *temperatureControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	headerKey := r.Header.Get(apiKeyHeader)

	var sub types.Submission
	body, err := utils.ReadBody(w, r, maxBodyBytes)
	if err == nil {
		sub, err = types.DecodeSubmission(body)
	}
	if err != nil {
		// The credential still takes precedence over body validation.
		if authErr := c.ingest.Authorize(headerKey); authErr != nil {
			writeServiceError(w, r, authErr)
			return
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeServiceError(w, r, types.InvalidInput(msgBodyTooLarge))
			return
		}
		writeServiceError(w, r, types.InvalidInput(msgInvalidBody))
		return
	}
	if sub.APIKey == "" {
		sub.APIKey = headerKey
	}

	reading, err := c.ingest.Submit(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ingestResponse{Message: "OK", SavedID: reading.ID})
}

func (c *temperatureControllerImpl) handleDay(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	readings, err := c.query.QueryDay(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *temperatureControllerImpl) handleTest(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "API OK"})
}

// writeServiceError maps the error kind to a status. Only validation messages
// reach the client; everything else is logged and answered generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "reason", ve.Msg)
		utils.WriteError(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, types.ErrUnauthorized):
		slog.Warn("unauthorized request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		utils.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, msgInternal)
	}
}
