package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/websocket"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail answers with the status and message carried by a classified error.
// Anything that maps to a 5xx is logged with its cause.
func fail(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, "error", err)
	}
	writeError(w, status, apperr.Message(err, fallback))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindInvalid, "invalid JSON", err)
	}
	return nil
}

func broadcast(hub *websocket.Hub, msg websocket.Message) {
	if hub != nil {
		hub.Broadcast(msg)
	}
}

func errBadQuery(param string) error {
	return apperr.Invalid("invalid " + param + " parameter")
}
