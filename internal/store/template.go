package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(sc scanner) (*model.TaskTemplate, error) {
	var t model.TaskTemplate
	var repeat, supplies, steps string
	var isDefault int
	var lastUsed sql.NullTime
	err := sc.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description, &t.Category, &t.Priority,
		&t.EstimatedMinutes, &repeat, &t.Room, &supplies, &steps, &isDefault,
		&t.UsageCount, &lastUsed, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Repeat, err = recurrence.Parse(repeat)
	if err != nil {
		return nil, fmt.Errorf("template %s repeat: %w", t.ID, err)
	}
	t.Supplies, t.Steps = []string{}, []string{}
	if err := decodeJSON(supplies, &t.Supplies); err != nil {
		return nil, fmt.Errorf("template %s supplies: %w", t.ID, err)
	}
	if err := decodeJSON(steps, &t.Steps); err != nil {
		return nil, fmt.Errorf("template %s steps: %w", t.ID, err)
	}
	t.IsDefault = isDefault != 0
	t.LastUsed = timePtr(lastUsed)
	return &t, nil
}

const templateCols = `id, household_id, title, description, category, priority, estimated_minutes,
	repeat_rule, room, supplies, steps, is_default, usage_count, last_used, created_by, created_at, updated_at`

func validateTemplate(t *model.TaskTemplate) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return apperr.Invalid("title is required")
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(t.Priority) {
		return apperr.Invalid("priority must be low, medium or high")
	}
	if t.EstimatedMinutes < 0 {
		return apperr.Invalid("estimated time cannot be negative")
	}
	if err := t.Repeat.Validate(); err != nil {
		return apperr.Wrap(apperr.KindInvalid, "invalid repeat rule", err)
	}
	if t.Supplies == nil {
		t.Supplies = []string{}
	}
	if t.Steps == nil {
		t.Steps = []string{}
	}
	return nil
}

func insertTemplate(tx *sql.Tx, householdID, createdBy string, t model.TaskTemplate) (string, error) {
	if err := validateTemplate(&t); err != nil {
		return "", err
	}
	supplies, err := encodeJSON(t.Supplies)
	if err != nil {
		return "", err
	}
	steps, err := encodeJSON(t.Steps)
	if err != nil {
		return "", err
	}
	isDefault := 0
	if t.IsDefault {
		isDefault = 1
	}
	id := newID()
	ts := now()
	_, err = tx.Exec(
		`INSERT INTO task_templates (id, household_id, title, description, category, priority,
		   estimated_minutes, repeat_rule, room, supplies, steps, is_default, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, householdID, t.Title, t.Description, t.Category, t.Priority,
		t.EstimatedMinutes, t.Repeat.String(), t.Room, supplies, steps, isDefault, createdBy, ts, ts,
	)
	if err != nil {
		return "", fmt.Errorf("insert template: %w", err)
	}
	return id, nil
}

func (s *TemplateStore) Create(householdID, createdBy string, t model.TaskTemplate) (*model.TaskTemplate, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	t.IsDefault = false
	id, err := insertTemplate(tx, householdID, createdBy, t)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

// SeedDefaults inserts the default catalogue for a household. It is a no-op
// when the household already has any default template.
func (s *TemplateStore) SeedDefaults(householdID, createdBy string, defaults []model.TaskTemplate) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM task_templates WHERE household_id = ? AND is_default = 1`, householdID,
	).Scan(&existing); err != nil {
		return 0, fmt.Errorf("count default templates: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	for _, t := range defaults {
		t.IsDefault = true
		if _, err := insertTemplate(tx, householdID, createdBy, t); err != nil {
			return 0, fmt.Errorf("seed template %q: %w", t.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(defaults), nil
}

func (s *TemplateStore) GetByID(id string) (*model.TaskTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM task_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) List(householdID string) ([]model.TaskTemplate, error) {
	rows, err := s.db.Query(
		`SELECT `+templateCols+` FROM task_templates WHERE household_id = ?
		 ORDER BY is_default DESC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []model.TaskTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// Update replaces the descriptive fields. Default flag and usage counters
// are kept.
func (s *TemplateStore) Update(id string, t model.TaskTemplate) (*model.TaskTemplate, error) {
	if err := validateTemplate(&t); err != nil {
		return nil, err
	}
	supplies, err := encodeJSON(t.Supplies)
	if err != nil {
		return nil, err
	}
	steps, err := encodeJSON(t.Steps)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`UPDATE task_templates SET title = ?, description = ?, category = ?, priority = ?,
		   estimated_minutes = ?, repeat_rule = ?, room = ?, supplies = ?, steps = ?, updated_at = ?
		 WHERE id = ?`,
		t.Title, t.Description, t.Category, t.Priority, t.EstimatedMinutes, t.Repeat.String(),
		t.Room, supplies, steps, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM task_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func (s *TemplateStore) IncrementUsage(id string) error {
	_, err := s.db.Exec(
		`UPDATE task_templates SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("increment template usage: %w", err)
	}
	return nil
}
