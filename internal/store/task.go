package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(sc scanner) (*model.Task, error) {
	var t model.Task
	var assigned, repeat string
	var completedBy sql.NullString
	var completedAt sql.NullTime
	err := sc.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description, &t.Priority, &t.Category, &t.Status,
		&assigned, &t.DueTime, &repeat, &t.CreatedBy, &completedBy, &completedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.AssignedTo = []model.Assignee{}
	if err := decodeJSON(assigned, &t.AssignedTo); err != nil {
		return nil, fmt.Errorf("task %s assignees: %w", t.ID, err)
	}
	t.Repeat, err = recurrence.Parse(repeat)
	if err != nil {
		return nil, fmt.Errorf("task %s repeat: %w", t.ID, err)
	}
	t.CompletedBy = stringPtr(completedBy)
	t.CompletedAt = timePtr(completedAt)
	return &t, nil
}

const taskCols = `id, household_id, title, description, priority, category, status,
	assigned_to, due_time, repeat_rule, created_by, completed_by, completed_at, created_at, updated_at`

// ValidateDraft rejects drafts the task table would not accept.
func ValidateDraft(d *model.TaskDraft) error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return apperr.Invalid("title is required")
	}
	if d.Priority == "" {
		d.Priority = model.PriorityMedium
	}
	d.Priority = strings.ToLower(d.Priority)
	if !model.ValidPriority(d.Priority) {
		return apperr.Invalid("priority must be low, medium or high")
	}
	if d.DueTime.IsZero() {
		return apperr.Invalid("due time is required")
	}
	if err := d.Repeat.Validate(); err != nil {
		return apperr.Wrap(apperr.KindInvalid, "invalid repeat rule", err)
	}
	for _, a := range d.AssignedTo {
		if strings.TrimSpace(a.ID) == "" {
			return apperr.Invalid("assignee id is required")
		}
	}
	if d.AssignedTo == nil {
		d.AssignedTo = []model.Assignee{}
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertTask(ex execer, householdID, createdBy string, d model.TaskDraft) (string, error) {
	if err := ValidateDraft(&d); err != nil {
		return "", err
	}
	assigned, err := encodeJSON(d.AssignedTo)
	if err != nil {
		return "", err
	}
	id := newID()
	ts := now()
	_, err = ex.Exec(
		`INSERT INTO tasks (id, household_id, title, description, priority, category, status,
		   assigned_to, due_time, repeat_rule, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, householdID, d.Title, d.Description, d.Priority, strings.TrimSpace(d.Category), model.StatusPending,
		assigned, d.DueTime.UTC(), d.Repeat.String(), createdBy, ts, ts,
	)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

func (s *TaskStore) Create(householdID, createdBy string, d model.TaskDraft) (*model.Task, error) {
	id, err := insertTask(s.db, householdID, createdBy, d)
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// Update replaces every descriptive field of the task. Status and completion
// fields are left alone.
func (s *TaskStore) Update(id string, d model.TaskDraft) (*model.Task, error) {
	if err := ValidateDraft(&d); err != nil {
		return nil, err
	}
	assigned, err := encodeJSON(d.AssignedTo)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, priority = ?, category = ?, assigned_to = ?,
		   due_time = ?, repeat_rule = ?, updated_at = ?
		 WHERE id = ?`,
		d.Title, d.Description, d.Priority, strings.TrimSpace(d.Category), assigned,
		d.DueTime.UTC(), d.Repeat.String(), now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// SetStatus writes the status and completion fields as given.
func (s *TaskStore) SetStatus(id, status string, completedBy *string, completedAt *time.Time) (*model.Task, error) {
	if !model.ValidStatus(status) {
		return nil, apperr.Invalid("unknown status")
	}
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, completed_by = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		status, nullString(completedBy), nullTime(completedAt), now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListByHouseholds returns the tasks of every listed household in a single
// query. Callers bound len(householdIDs).
func (s *TaskStore) ListByHouseholds(householdIDs []string) ([]model.Task, error) {
	if len(householdIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(householdIDs))
	for i, id := range householdIDs {
		args[i] = id
	}
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE household_id IN (`+placeholders(len(args))+`)
		 ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks by households: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListDueBetween returns open tasks due in [from, to).
func (s *TaskStore) ListDueBetween(from, to time.Time) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks
		 WHERE status != ? AND due_time >= ? AND due_time < ?
		 ORDER BY due_time ASC`,
		model.StatusCompleted, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks due: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}
