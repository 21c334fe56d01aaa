package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/assistant"
	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/push"
	"github.com/01001010sedano/TidyTapv1/internal/store"
	"github.com/01001010sedano/TidyTapv1/internal/templates"
	"github.com/01001010sedano/TidyTapv1/internal/websocket"
)

const defaultSuggestionCategory = "General"

type AssistantHandler struct {
	service     *assistant.Service
	suggestions *store.SuggestionStore
	households  *store.HouseholdStore
	settings    *store.SettingsStore
	notifier    *push.Notifier
	hub         *websocket.Hub
	logger      *slog.Logger
	now         func() time.Time
}

func NewAssistantHandler(
	svc *assistant.Service,
	ss *store.SuggestionStore,
	hs *store.HouseholdStore,
	settings *store.SettingsStore,
	notifier *push.Notifier,
	hub *websocket.Hub,
	logger *slog.Logger,
) *AssistantHandler {
	return &AssistantHandler{
		service:     svc,
		suggestions: ss,
		households:  hs,
		settings:    settings,
		notifier:    notifier,
		hub:         hub,
		logger:      logger,
		now:         time.Now,
	}
}

func caller(sess auth.Session) assistant.Caller {
	return assistant.Caller{UserID: sess.UserID, Role: sess.Role, HouseholdID: sess.HouseholdID}
}

type chatRequest struct {
	Message string              `json:"message"`
	History []assistant.Message `json:"history"`
}

func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	result, err := h.service.Chat(r.Context(), caller(sess), req.History, req.Message)
	if err != nil {
		fail(w, h.logger, err, "Failed to reach the assistant")
		return
	}
	if result.Task != nil {
		h.notifier.NotifyAssigned(*result.Task, nil, sess.UserID)
		broadcast(h.hub, websocket.NewMessage(result.Task.HouseholdID, "task", "create", result.Task.ID))
	}
	writeJSON(w, http.StatusOK, result)
}

// Suggest proposes priority, category and repeat for a task being drafted.
// ok is false when the assistant gave nothing usable.
func (h *AssistantHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	writeJSON(w, http.StatusOK, h.service.SuggestFields(r.Context(), req.Title, req.Description))
}

func (h *AssistantHandler) Affirmation(w http.ResponseWriter, r *http.Request) {
	if hid := auth.HouseholdID(r.Context()); hid != "" {
		enabled, err := h.settings.Enabled(hid, model.SettingAffirmationsEnabled)
		if err != nil {
			fail(w, h.logger, err, "Failed to load settings")
			return
		}
		if !enabled {
			writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "text": ""})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "text": h.service.Affirmation(r.Context())})
}

// Propose asks the assistant for follow-up tasks and returns the stored
// suggestions.
func (h *AssistantHandler) Propose(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if sess.HouseholdID == "" {
		writeError(w, http.StatusBadRequest, "You are not in a household")
		return
	}

	proposed, err := h.service.Propose(r.Context(), caller(sess), sess.HouseholdID)
	if err != nil {
		fail(w, h.logger, err, "Failed to propose tasks")
		return
	}
	if proposed == nil {
		proposed = []model.Suggestion{}
	}
	if len(proposed) > 0 {
		broadcast(h.hub, websocket.NewMessage(sess.HouseholdID, "suggestion", "create", ""))
	}
	writeJSON(w, http.StatusOK, proposed)
}

func (h *AssistantHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	hid := auth.HouseholdID(r.Context())
	if hid == "" {
		writeJSON(w, http.StatusOK, []model.Suggestion{})
		return
	}
	list, err := h.suggestions.ListPending(hid)
	if err != nil {
		fail(w, h.logger, err, "Failed to list suggestions")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// loadSuggestion fetches a suggestion of the caller's household. It writes
// the response and returns nil when it is missing or belongs elsewhere.
func (h *AssistantHandler) loadSuggestion(w http.ResponseWriter, r *http.Request) *model.Suggestion {
	sg, err := h.suggestions.GetByID(r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, err, "Failed to get suggestion")
		return nil
	}
	if sg == nil || sg.HouseholdID != auth.HouseholdID(r.Context()) {
		writeError(w, http.StatusNotFound, "Suggestion not found")
		return nil
	}
	return sg
}

// AcceptSuggestion turns a pending suggestion into a task.
func (h *AssistantHandler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	sg := h.loadSuggestion(w, r)
	if sg == nil {
		return
	}

	names, err := memberNames(h.households, sg.HouseholdID)
	if err != nil {
		fail(w, h.logger, err, "Failed to accept suggestion")
		return
	}
	d := suggestionDraft(*sg, names, h.now())

	sess, _ := auth.FromContext(r.Context())
	taskID, err := h.suggestions.Accept(sg.ID, sess.UserID, d)
	if err != nil {
		fail(w, h.logger, err, "Failed to accept suggestion")
		return
	}

	h.notifier.NotifyAssigned(model.Task{
		ID:          taskID,
		HouseholdID: sg.HouseholdID,
		Title:       d.Title,
		AssignedTo:  d.AssignedTo,
		DueTime:     d.DueTime,
	}, nil, sess.UserID)
	broadcast(h.hub, websocket.NewMessage(sg.HouseholdID, "task", "create", taskID))
	broadcast(h.hub, websocket.NewMessage(sg.HouseholdID, "suggestion", "accept", sg.ID))
	writeJSON(w, http.StatusCreated, map[string]string{"task_id": taskID})
}

func (h *AssistantHandler) IgnoreSuggestion(w http.ResponseWriter, r *http.Request) {
	sg := h.loadSuggestion(w, r)
	if sg == nil {
		return
	}
	if err := h.suggestions.Ignore(sg.ID); err != nil {
		fail(w, h.logger, err, "Failed to ignore suggestion")
		return
	}
	broadcast(h.hub, websocket.NewMessage(sg.HouseholdID, "suggestion", "ignore", sg.ID))
	w.WriteHeader(http.StatusNoContent)
}

// suggestionDraft copies a suggestion into a task draft. The suggested
// assignee may be a member id or a name; a missing date means now.
func suggestionDraft(sg model.Suggestion, names map[string]string, now time.Time) model.TaskDraft {
	d := model.TaskDraft{
		Title:       sg.Title,
		Description: sg.Description,
		Priority:    sg.Priority,
		Category:    sg.Category,
		AssignedTo:  []model.Assignee{},
		DueTime:     sg.SuggestedDate,
		Repeat:      sg.Repeat,
	}
	if strings.TrimSpace(d.Category) == "" {
		d.Category = defaultSuggestionCategory
	}
	if d.DueTime.IsZero() {
		d.DueTime = now
	}
	if ref := strings.TrimSpace(sg.AssignedTo); ref != "" {
		id := ref
		if _, ok := names[ref]; !ok {
			for memberID, name := range names {
				if strings.EqualFold(name, ref) {
					id = memberID
					break
				}
			}
		}
		d.AssignedTo = templates.ResolveAssignees([]string{id}, names)
	}
	return d
}
