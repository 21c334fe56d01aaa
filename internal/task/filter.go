package task

import (
	"slices"
	"strings"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

// Named filter presets offered by the task list.
const (
	PresetAll            = "all"
	PresetCompleted      = "completed"
	PresetPending        = "pending"
	PresetInProgress     = "in-progress"
	PresetAssignedToMe   = "assigned-to-me"
	PresetHighPriority   = "high-priority"
	PresetMediumPriority = "medium-priority"
	PresetLowPriority    = "low-priority"
)

var presets = []string{
	PresetAll, PresetCompleted, PresetPending, PresetInProgress, PresetAssignedToMe,
	PresetHighPriority, PresetMediumPriority, PresetLowPriority,
}

// Filter selects tasks. The zero value selects everything.
type Filter struct {
	Preset   string
	Status   string
	Priority string
	Category string
	Mine     bool
	UserID   string // required when Mine or PresetAssignedToMe is used
}

// FromPreset expands a named preset into field criteria.
func FromPreset(preset, userID string) (Filter, error) {
	f := Filter{UserID: userID}
	switch preset {
	case "", PresetAll:
	case PresetCompleted:
		f.Status = model.StatusCompleted
	case PresetPending:
		f.Status = model.StatusPending
	case PresetInProgress:
		f.Status = model.StatusInProgress
	case PresetAssignedToMe:
		f.Mine = true
	case PresetHighPriority:
		f.Priority = model.PriorityHigh
	case PresetMediumPriority:
		f.Priority = model.PriorityMedium
	case PresetLowPriority:
		f.Priority = model.PriorityLow
	default:
		return Filter{}, apperr.Invalid("unknown filter " + preset + "; want one of " + strings.Join(presets, ", "))
	}
	f.Preset = preset
	return f, nil
}

// Active reports whether any criterion narrows the list.
func (f Filter) Active() bool {
	return f.Status != "" || f.Priority != "" || f.Category != "" || f.Mine
}

func (f Filter) match(t *model.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	if f.Mine && !t.IsAssigned(f.UserID) {
		return false
	}
	return true
}

// Apply returns the tasks matching f. Only an unfiltered list is sorted, by
// ascending due time; a filtered list keeps the input order. The input slice
// is not modified.
func Apply(tasks []model.Task, f Filter) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		if f.match(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	if !f.Active() {
		slices.SortStableFunc(out, func(a, b model.Task) int {
			return a.DueTime.Compare(b.DueTime)
		})
	}
	return out
}
