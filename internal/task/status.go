// Package task holds the task lifecycle and the pure operations over task
// lists: status transitions, filtering, visibility, summaries and calendars.
package task

import (
	"fmt"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

// transitions lists the allowed status moves. Entering completed stamps the
// completer; leaving it clears the stamp.
var transitions = map[string][]string{
	model.StatusPending:    {model.StatusCompleted, model.StatusInProgress},
	model.StatusInProgress: {model.StatusPending, model.StatusCompleted},
	model.StatusCompleted:  {model.StatusPending},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns a copy of t moved to status to by actor at the given time.
func Transition(t model.Task, to, actor string, at time.Time) (model.Task, error) {
	if !model.ValidStatus(to) {
		return t, apperr.Invalid(fmt.Sprintf("unknown status %q", to))
	}
	if !CanTransition(t.Status, to) {
		return t, apperr.Invalid(fmt.Sprintf("cannot move a task from %s to %s", t.Status, to))
	}

	t.Status = to
	if to == model.StatusCompleted {
		by := actor
		when := at.UTC()
		t.CompletedBy = &by
		t.CompletedAt = &when
	} else {
		t.CompletedBy = nil
		t.CompletedAt = nil
	}
	return t, nil
}

// Viewer is who is looking at tasks.
type Viewer struct {
	UserID      string
	Role        string
	HouseholdID string
}

func (v Viewer) IsManagerOf(householdID string) bool {
	return v.Role == model.RoleManager && v.HouseholdID != "" && v.HouseholdID == householdID
}

// CanEdit reports whether v may create, edit or delete tasks of the household.
func CanEdit(v Viewer, householdID string) bool {
	return v.IsManagerOf(householdID)
}

// CanChangeStatus reports whether v may move t through its lifecycle: the
// household manager or any assignee.
func CanChangeStatus(v Viewer, t *model.Task) bool {
	return v.IsManagerOf(t.HouseholdID) || t.IsAssigned(v.UserID)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
