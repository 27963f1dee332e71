package presenter

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/service"
)

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	correlationID, _ := r.Context().Value("correlation_id").(string)
	resp := ErrorResponse{
		Error:         msg,
		CorrelationID: correlationID,
	}
	JSON(w, r, resp, status)
}

// RetryAfter is sent with 503 responses, in seconds.
const RetryAfter = "30"

// Err answers with the status that belongs to err. Server side failures are logged.
func Err(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := service.StatusCode(err)
	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", RetryAfter)
		log.Ctx(r.Context()).Warn().Err(err).Msg(short)
	case status >= http.StatusInternalServerError:
		log.Ctx(r.Context()).Error().Err(err).Msg(short)
	}
	Error(w, r, short+": "+err.Error(), status)
}
