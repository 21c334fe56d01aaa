package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

type SuggestionStore struct {
	db *sql.DB
}

func NewSuggestionStore(db *sql.DB) *SuggestionStore {
	return &SuggestionStore{db: db}
}

func scanSuggestion(sc scanner) (*model.Suggestion, error) {
	var sg model.Suggestion
	var repeat string
	err := sc.Scan(
		&sg.ID, &sg.HouseholdID, &sg.Title, &sg.Description, &sg.Category, &sg.Priority,
		&repeat, &sg.AssignedTo, &sg.SuggestedDate, &sg.Reason, &sg.CreatedFromTaskID,
		&sg.Status, &sg.CreatedBy, &sg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sg.Repeat, err = recurrence.Parse(repeat)
	if err != nil {
		return nil, fmt.Errorf("suggestion %s repeat: %w", sg.ID, err)
	}
	return &sg, nil
}

const suggestionCols = `id, household_id, title, description, category, priority, repeat_rule,
	assigned_to, suggested_date, reason, created_from_task_id, status, created_by, created_at`

func (s *SuggestionStore) Create(sg model.Suggestion) (*model.Suggestion, error) {
	sg.Title = strings.TrimSpace(sg.Title)
	if sg.Title == "" {
		return nil, apperr.Invalid("title is required")
	}
	if sg.Priority == "" {
		sg.Priority = model.PriorityLow
	}
	if !model.ValidPriority(sg.Priority) {
		return nil, apperr.Invalid("priority must be low, medium or high")
	}
	if sg.SuggestedDate.IsZero() {
		return nil, apperr.Invalid("suggested date is required")
	}
	if err := sg.Repeat.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, "invalid repeat rule", err)
	}

	id := newID()
	_, err := s.db.Exec(
		`INSERT INTO suggestions (id, household_id, title, description, category, priority, repeat_rule,
		   assigned_to, suggested_date, reason, created_from_task_id, status, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sg.HouseholdID, sg.Title, sg.Description, sg.Category, sg.Priority, sg.Repeat.String(),
		sg.AssignedTo, sg.SuggestedDate.UTC(), sg.Reason, sg.CreatedFromTaskID,
		model.SuggestionPending, sg.CreatedBy, now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert suggestion: %w", err)
	}
	return s.GetByID(id)
}

func (s *SuggestionStore) GetByID(id string) (*model.Suggestion, error) {
	row := s.db.QueryRow(`SELECT `+suggestionCols+` FROM suggestions WHERE id = ?`, id)
	sg, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return sg, nil
}

// ListPending returns the household's open suggestions, soonest first.
func (s *SuggestionStore) ListPending(householdID string) ([]model.Suggestion, error) {
	rows, err := s.db.Query(
		`SELECT `+suggestionCols+` FROM suggestions WHERE household_id = ? AND status = ?
		 ORDER BY suggested_date ASC`,
		householdID, model.SuggestionPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := []model.Suggestion{}
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, *sg)
	}
	return suggestions, rows.Err()
}

// Accept writes draft as a new task of the suggestion's household and marks
// the suggestion accepted, both or neither.
func (s *SuggestionStore) Accept(id, acceptedBy string, draft model.TaskDraft) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", txFailed("accept suggestion", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	var householdID, status string
	err = tx.QueryRow(`SELECT household_id, status FROM suggestions WHERE id = ?`, id).Scan(&householdID, &status)
	if err == sql.ErrNoRows {
		return "", apperr.NotFound("Suggestion not found")
	}
	if err != nil {
		return "", txFailed("accept suggestion", fmt.Errorf("get suggestion: %w", err))
	}
	if status != model.SuggestionPending {
		return "", apperr.Conflict("Suggestion was already handled")
	}

	taskID, err := insertTask(tx, householdID, acceptedBy, draft)
	if err != nil {
		return "", txFailed("accept suggestion", err)
	}
	if _, err := tx.Exec(`UPDATE suggestions SET status = ? WHERE id = ?`, model.SuggestionAccepted, id); err != nil {
		return "", txFailed("accept suggestion", fmt.Errorf("update suggestion: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return "", txFailed("accept suggestion", fmt.Errorf("commit tx: %w", err))
	}
	return taskID, nil
}

func (s *SuggestionStore) Ignore(id string) error {
	result, err := s.db.Exec(
		`UPDATE suggestions SET status = ? WHERE id = ? AND status = ?`,
		model.SuggestionIgnored, id, model.SuggestionPending,
	)
	if err != nil {
		return fmt.Errorf("ignore suggestion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Suggestion not found")
	}
	return nil
}
