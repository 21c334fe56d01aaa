package store

import (
	"database/sql"
	"testing"

	"github.com/01001010sedano/TidyTapv1/internal/database"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func managerProfile(id, name string) model.Profile {
	return model.Profile{ID: id, Email: id + "@example.com", Name: name, Role: model.RoleManager}
}

func helperProfile(id, name string) model.Profile {
	return model.Profile{ID: id, Email: id + "@example.com", Name: name, Role: model.RoleHelper}
}

// createHousehold creates a manager with a household and returns the household id.
func createHousehold(t *testing.T, hs *HouseholdStore, managerID, name string) (string, string) {
	t.Helper()
	created, err := hs.CreateWithManager(managerProfile(managerID, name), "")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return created.HouseholdID, created.InviteCode
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
