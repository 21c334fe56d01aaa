package task

import (
	"fmt"

	"github.com/01001010sedano/TidyTapv1/internal/model"
)

// BatchSize caps the number of household ids in one task query.
const BatchSize = 10

// Source loads the tasks of a bounded set of households.
type Source interface {
	ListByHouseholds(householdIDs []string) ([]model.Task, error)
}

// Memberships lists the households a user belongs to.
type Memberships interface {
	MembershipIDs(userID string) ([]string, error)
}

// Visible returns the tasks v may see. A manager sees their own household.
// A helper sees the union over every household they are a member of, loaded
// in batches of at most BatchSize ids and deduplicated by task id.
func Visible(src Source, ms Memberships, v Viewer) ([]model.Task, error) {
	if v.Role == model.RoleManager {
		if v.HouseholdID == "" {
			return []model.Task{}, nil
		}
		tasks, err := src.ListByHouseholds([]string{v.HouseholdID})
		if err != nil {
			return nil, fmt.Errorf("load household tasks: %w", err)
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		return tasks, nil
	}

	ids, err := ms.MembershipIDs(v.UserID)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	return LoadBatched(src, ids)
}

// LoadBatched queries src in chunks of BatchSize and concatenates the results,
// dropping tasks already seen.
func LoadBatched(src Source, householdIDs []string) ([]model.Task, error) {
	tasks := []model.Task{}
	seen := make(map[string]bool)
	for start := 0; start < len(householdIDs); start += BatchSize {
		end := min(start+BatchSize, len(householdIDs))
		batch, err := src.ListByHouseholds(householdIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("load task batch %d: %w", start/BatchSize, err)
		}
		for _, t := range batch {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}
