package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/push"
	"github.com/01001010sedano/TidyTapv1/internal/store"
	"github.com/01001010sedano/TidyTapv1/internal/templates"
	"github.com/01001010sedano/TidyTapv1/internal/websocket"
)

type TemplateHandler struct {
	templates  *store.TemplateStore
	tasks      *store.TaskStore
	households *store.HouseholdStore
	notifier   *push.Notifier
	hub        *websocket.Hub
	logger     *slog.Logger
	now        func() time.Time
}

func NewTemplateHandler(
	tmpl *store.TemplateStore,
	ts *store.TaskStore,
	hs *store.HouseholdStore,
	notifier *push.Notifier,
	hub *websocket.Hub,
	logger *slog.Logger,
) *TemplateHandler {
	return &TemplateHandler{
		templates:  tmpl,
		tasks:      ts,
		households: hs,
		notifier:   notifier,
		hub:        hub,
		logger:     logger,
		now:        time.Now,
	}
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	hid := auth.HouseholdID(r.Context())
	if hid == "" {
		writeJSON(w, http.StatusOK, []model.TaskTemplate{})
		return
	}
	list, err := h.templates.List(hid)
	if err != nil {
		fail(w, h.logger, err, "Failed to list templates")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TemplateHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, templates.Categories())
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t model.TaskTemplate
	if err := decodeJSON(w, r, &t); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	created, err := h.templates.Create(sess.HouseholdID, sess.UserID, t)
	if err != nil {
		fail(w, h.logger, err, "Failed to create template")
		return
	}
	broadcast(h.hub, websocket.NewMessage(sess.HouseholdID, "template", "create", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

// load fetches a template of the caller's household. It writes the response
// and returns nil when the template is missing or belongs elsewhere.
func (h *TemplateHandler) load(w http.ResponseWriter, r *http.Request) *model.TaskTemplate {
	t, err := h.templates.GetByID(r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, err, "Failed to get template")
		return nil
	}
	if t == nil || t.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "Template not found")
		return nil
	}
	return t
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}
	var t model.TaskTemplate
	if err := decodeJSON(w, r, &t); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	updated, err := h.templates.Update(existing.ID, t)
	if err != nil {
		fail(w, h.logger, err, "Failed to update template")
		return
	}
	broadcast(h.hub, websocket.NewMessage(updated.HouseholdID, "template", "update", updated.ID))
	writeJSON(w, http.StatusOK, updated)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}
	if err := h.templates.Delete(existing.ID); err != nil {
		fail(w, h.logger, err, "Failed to delete template")
		return
	}
	broadcast(h.hub, websocket.NewMessage(existing.HouseholdID, "template", "delete", existing.ID))
	w.WriteHeader(http.StatusNoContent)
}

// SeedDefaults installs the built-in catalogue once per household.
func (h *TemplateHandler) SeedDefaults(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	n, err := h.templates.SeedDefaults(sess.HouseholdID, sess.UserID, templates.Defaults())
	if err != nil {
		fail(w, h.logger, err, "Failed to seed templates")
		return
	}
	if n > 0 {
		broadcast(h.hub, websocket.NewMessage(sess.HouseholdID, "template", "create", ""))
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}

type instantiateRequest struct {
	AssignedTo []string   `json:"assigned_to"`
	DueTime    *time.Time `json:"due_time"`
}

// Instantiate creates a pending task from a template and counts the use.
func (h *TemplateHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	tmpl := h.load(w, r)
	if tmpl == nil {
		return
	}
	var req instantiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	names, err := memberNames(h.households, tmpl.HouseholdID)
	if err != nil {
		fail(w, h.logger, err, "Failed to use template")
		return
	}
	d := templates.Instantiate(*tmpl, templates.ResolveAssignees(req.AssignedTo, names), req.DueTime, h.now())

	t, err := h.tasks.Create(tmpl.HouseholdID, sess.UserID, d)
	if err != nil {
		fail(w, h.logger, err, "Failed to use template")
		return
	}
	if err := h.templates.IncrementUsage(tmpl.ID); err != nil {
		h.logger.Error("increment template usage", "template_id", tmpl.ID, "error", err)
	}

	h.notifier.NotifyAssigned(*t, nil, sess.UserID)
	broadcast(h.hub, websocket.NewMessage(t.HouseholdID, "task", "create", t.ID))
	writeJSON(w, http.StatusCreated, t)
}
