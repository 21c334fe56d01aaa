package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/metrics"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/store"
	"github.com/01001010sedano/TidyTapv1/internal/websocket"
)

type HouseholdHandler struct {
	store   *store.HouseholdStore
	mailer  Mailer
	hub     *websocket.Hub
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHouseholdHandler(s *store.HouseholdStore, mailer Mailer, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{store: s, mailer: mailer, hub: hub, metrics: m, logger: logger}
}

func (h *HouseholdHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	lookup, err := h.store.LookupByInviteCode(req.Code)
	if err != nil {
		fail(w, h.logger, err, "Failed to look up invite code")
		return
	}
	writeJSON(w, http.StatusOK, lookup)
}

// Mine lists every household the caller belongs to.
func (h *HouseholdHandler) Mine(w http.ResponseWriter, r *http.Request) {
	households, err := h.store.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		fail(w, h.logger, err, "Failed to list households")
		return
	}
	writeJSON(w, http.StatusOK, households)
}

func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.requireMember(w, r, id) {
		return
	}

	detail, err := h.store.Get(id)
	if err != nil {
		fail(w, h.logger, err, "Failed to get household")
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "Household not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	profile := model.Profile{ID: sess.UserID, Email: sess.Email, Name: sess.Name, Role: sess.Role}
	household, err := h.store.Join(req.Code, profile)
	h.metrics.ObserveHouseholdTx("join", err)
	if err != nil {
		fail(w, h.logger, err, "Failed to join household")
		return
	}

	if h.hub != nil {
		h.hub.Subscribe(sess.UserID, household.ID)
	}
	broadcast(h.hub, websocket.NewMessage(household.ID, "member", "joined", sess.UserID))
	writeJSON(w, http.StatusOK, household)
}

func (h *HouseholdHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := auth.UserID(r.Context())

	err := h.store.Leave(userID, id)
	h.metrics.ObserveHouseholdTx("leave", err)
	if err != nil {
		fail(w, h.logger, err, "Failed to leave household")
		return
	}

	if h.hub != nil {
		h.hub.Unsubscribe(userID, id)
	}
	broadcast(h.hub, websocket.NewMessage(id, "member", "left", userID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *HouseholdHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	memberID := r.PathValue("member_id")

	err := h.store.RemoveMember(auth.UserID(r.Context()), id, memberID)
	h.metrics.ObserveHouseholdTx("remove_member", err)
	if err != nil {
		fail(w, h.logger, err, "Failed to remove member")
		return
	}

	if h.hub != nil {
		h.hub.Unsubscribe(memberID, id)
	}
	broadcast(h.hub, websocket.NewMessage(id, "member", "removed", memberID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *HouseholdHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	household, err := h.store.Rename(auth.UserID(r.Context()), id, req.Name)
	if err != nil {
		fail(w, h.logger, err, "Failed to rename household")
		return
	}

	broadcast(h.hub, websocket.NewMessage(id, "household", "update", id))
	writeJSON(w, http.StatusOK, household)
}

// Invite emails the household's invite code.
func (h *HouseholdHandler) Invite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}
	to := strings.TrimSpace(req.Email)
	if to == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	household, err := h.store.GetByID(id)
	if err != nil {
		fail(w, h.logger, err, "Failed to get household")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "Household not found")
		return
	}
	if household.ManagerID != sess.UserID {
		writeError(w, http.StatusForbidden, "Only the household manager can send invites")
		return
	}

	if err := h.mailer.SendInvite(to, sess.Name, household.Name, household.InviteCode); err != nil {
		fail(w, h.logger, err, "Failed to send invite")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *HouseholdHandler) requireMember(w http.ResponseWriter, r *http.Request, householdID string) bool {
	ok, err := h.store.IsMember(householdID, auth.UserID(r.Context()))
	if err != nil {
		fail(w, h.logger, err, "Failed to check membership")
		return false
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Household not found")
		return false
	}
	return true
}
