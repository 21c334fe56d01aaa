package handler

import (
	"log/slog"
	"net/http"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/store"
	"github.com/01001010sedano/TidyTapv1/internal/websocket"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, hub: hub, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	hid := auth.HouseholdID(r.Context())
	if hid == "" {
		writeJSON(w, http.StatusOK, map[string]string{})
		return
	}
	settings, err := h.settingsStore.GetAll(hid)
	if err != nil {
		fail(w, h.logger, err, "Failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update applies every key of the body or, when any key is rejected, none.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	hid := auth.HouseholdID(r.Context())
	if err := h.settingsStore.SetMany(hid, req); err != nil {
		fail(w, h.logger, err, "Failed to save settings")
		return
	}

	broadcast(h.hub, websocket.NewMessage(hid, "settings", "update", hid))

	settings, err := h.settingsStore.GetAll(hid)
	if err != nil {
		fail(w, h.logger, err, "Failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
