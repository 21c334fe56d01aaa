package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/push"
	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
	"github.com/01001010sedano/TidyTapv1/internal/store"
	"github.com/01001010sedano/TidyTapv1/internal/task"
	"github.com/01001010sedano/TidyTapv1/internal/templates"
	"github.com/01001010sedano/TidyTapv1/internal/websocket"
)

type TaskHandler struct {
	tasks      *store.TaskStore
	households *store.HouseholdStore
	users      *store.UserStore
	notifier   *push.Notifier
	hub        *websocket.Hub
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

func NewTaskHandler(
	ts *store.TaskStore,
	hs *store.HouseholdStore,
	us *store.UserStore,
	notifier *push.Notifier,
	hub *websocket.Hub,
	loc *time.Location,
	logger *slog.Logger,
) *TaskHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskHandler{
		tasks:      ts,
		households: hs,
		users:      us,
		notifier:   notifier,
		hub:        hub,
		loc:        loc,
		logger:     logger,
		now:        time.Now,
	}
}

type taskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Category    string          `json:"category"`
	AssignedTo  []string        `json:"assigned_to"`
	DueTime     time.Time       `json:"due_time"`
	Repeat      recurrence.Rule `json:"repeat"`
}

// draft resolves assignee ids against the household's members.
func (h *TaskHandler) draft(householdID string, req taskRequest) (model.TaskDraft, error) {
	names, err := memberNames(h.households, householdID)
	if err != nil {
		return model.TaskDraft{}, err
	}
	return model.TaskDraft{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		AssignedTo:  templates.ResolveAssignees(req.AssignedTo, names),
		DueTime:     req.DueTime,
		Repeat:      req.Repeat,
	}, nil
}

func memberNames(hs *store.HouseholdStore, householdID string) (map[string]string, error) {
	members, err := hs.ListMembers(householdID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names, nil
}

func (h *TaskHandler) visible(r *http.Request) ([]model.Task, error) {
	sess, _ := auth.FromContext(r.Context())
	return task.Visible(h.tasks, h.households, sess.Viewer())
}

// filterFromQuery reads a named preset from ?filter= and narrows it further
// with the status, priority, category and mine parameters.
func filterFromQuery(r *http.Request, userID string) (task.Filter, error) {
	q := r.URL.Query()
	f, err := task.FromPreset(q.Get("filter"), userID)
	if err != nil {
		return task.Filter{}, err
	}
	if s := q.Get("status"); s != "" {
		if !model.ValidStatus(s) {
			return task.Filter{}, errBadQuery("status")
		}
		f.Status = s
	}
	if p := q.Get("priority"); p != "" {
		if !model.ValidPriority(p) {
			return task.Filter{}, errBadQuery("priority")
		}
		f.Priority = p
	}
	if c := q.Get("category"); c != "" {
		f.Category = c
	}
	if m := q.Get("mine"); m != "" {
		mine, err := strconv.ParseBool(m)
		if err != nil {
			return task.Filter{}, errBadQuery("mine")
		}
		f.Mine = f.Mine || mine
	}
	return f, nil
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r, auth.UserID(r.Context()))
	if err != nil {
		fail(w, h.logger, err, "Invalid filter")
		return
	}
	tasks, err := h.visible(r)
	if err != nil {
		fail(w, h.logger, err, "Failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, task.Apply(tasks, f))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	sess, _ := auth.FromContext(r.Context())
	if !task.CanEdit(sess.Viewer(), sess.HouseholdID) {
		writeError(w, http.StatusForbidden, "Only the household manager can create tasks")
		return
	}

	d, err := h.draft(sess.HouseholdID, req)
	if err != nil {
		fail(w, h.logger, err, "Failed to create task")
		return
	}
	t, err := h.tasks.Create(sess.HouseholdID, sess.UserID, d)
	if err != nil {
		fail(w, h.logger, err, "Failed to create task")
		return
	}

	h.notifier.NotifyAssigned(*t, nil, sess.UserID)
	broadcast(h.hub, websocket.NewMessage(t.HouseholdID, "task", "create", t.ID))
	writeJSON(w, http.StatusCreated, t)
}

// load fetches a task the caller may see. It writes the response and returns
// nil when the task is missing or hidden.
func (h *TaskHandler) load(w http.ResponseWriter, r *http.Request) *model.Task {
	t, err := h.tasks.GetByID(r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, err, "Failed to get task")
		return nil
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return nil
	}
	member, err := h.households.IsMember(t.HouseholdID, auth.UserID(r.Context()))
	if err != nil {
		fail(w, h.logger, err, "Failed to get task")
		return nil
	}
	if !member {
		writeError(w, http.StatusNotFound, "Task not found")
		return nil
	}
	return t
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t := h.load(w, r)
	if t == nil {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}
	sess, _ := auth.FromContext(r.Context())
	if !task.CanEdit(sess.Viewer(), existing.HouseholdID) {
		writeError(w, http.StatusForbidden, "Only the household manager can edit tasks")
		return
	}

	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}
	d, err := h.draft(existing.HouseholdID, req)
	if err != nil {
		fail(w, h.logger, err, "Failed to update task")
		return
	}
	t, err := h.tasks.Update(existing.ID, d)
	if err != nil {
		fail(w, h.logger, err, "Failed to update task")
		return
	}

	h.notifier.NotifyAssigned(*t, existing.AssignedTo, sess.UserID)
	broadcast(h.hub, websocket.NewMessage(t.HouseholdID, "task", "update", t.ID))
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}
	sess, _ := auth.FromContext(r.Context())
	if !task.CanEdit(sess.Viewer(), existing.HouseholdID) {
		writeError(w, http.StatusForbidden, "Only the household manager can delete tasks")
		return
	}

	if err := h.tasks.Delete(existing.ID); err != nil {
		fail(w, h.logger, err, "Failed to delete task")
		return
	}

	broadcast(h.hub, websocket.NewMessage(existing.HouseholdID, "task", "delete", existing.ID))
	w.WriteHeader(http.StatusNoContent)
}

// Status moves a task through its lifecycle. The manager and any assignee
// may do so.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}
	sess, _ := auth.FromContext(r.Context())
	if !task.CanChangeStatus(sess.Viewer(), existing) {
		writeError(w, http.StatusForbidden, "Only the manager or an assignee can change this task")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	next, err := task.Transition(*existing, req.Status, sess.UserID, h.now())
	if err != nil {
		fail(w, h.logger, err, "Failed to change status")
		return
	}
	t, err := h.tasks.SetStatus(existing.ID, next.Status, next.CompletedBy, next.CompletedAt)
	if err != nil {
		fail(w, h.logger, err, "Failed to change status")
		return
	}

	broadcast(h.hub, websocket.NewMessage(t.HouseholdID, "task", "status", t.ID))
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.visible(r)
	if err != nil {
		fail(w, h.logger, err, "Failed to summarize tasks")
		return
	}
	writeJSON(w, http.StatusOK, task.Summarize(tasks))
}

// Calendar groups visible tasks by day for ?month=YYYY-MM, the current month
// by default.
func (h *TaskHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	month := h.now().In(h.loc)
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := time.ParseInLocation("2006-01", m, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = parsed
	}

	tasks, err := h.visible(r)
	if err != nil {
		fail(w, h.logger, err, "Failed to load calendar")
		return
	}
	writeJSON(w, http.StatusOK, task.Calendar(tasks, month, h.loc))
}

// Log lists completed tasks with the completer's current name.
func (h *TaskHandler) Log(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.visible(r)
	if err != nil {
		fail(w, h.logger, err, "Failed to load completion log")
		return
	}

	users, err := h.users.ListByIDs(task.Completers(tasks))
	if err != nil {
		fail(w, h.logger, err, "Failed to load completion log")
		return
	}
	names := make(map[string]string, len(users))
	for id, u := range users {
		names[id] = u.Name
	}
	writeJSON(w, http.StatusOK, task.CompletionLog(tasks, names))
}
