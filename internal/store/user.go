package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	var householdID sql.NullString
	err := sc.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &householdID, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.HouseholdID = stringPtr(householdID)
	return &u, nil
}

const userCols = `id, email, name, role, household_id, password_hash, created_at, updated_at`

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateProfile(p model.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return apperr.Invalid("user id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Invalid("name is required")
	}
	if normalizeEmail(p.Email) == "" {
		return apperr.Invalid("email is required")
	}
	if !model.ValidRole(p.Role) {
		return apperr.Invalid("role must be manager or helper")
	}
	return nil
}

func insertUser(tx *sql.Tx, p model.Profile, householdID *string, passwordHash string) error {
	ts := now()
	_, err := tx.Exec(
		`INSERT INTO users (id, email, name, role, household_id, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, normalizeEmail(p.Email), strings.TrimSpace(p.Name), p.Role, nullString(householdID), passwordHash, ts, ts,
	)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, "An account with this email already exists", err)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Create inserts a user that belongs to no household yet.
func (s *UserStore) Create(p model.Profile, passwordHash string) (*model.User, error) {
	if err := validateProfile(p); err != nil {
		return nil, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(tx, p, nil, passwordHash); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(p.ID)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, normalizeEmail(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListByIDs returns the users that exist among ids, keyed by id.
func (s *UserStore) ListByIDs(ids []string) (map[string]*model.User, error) {
	users := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

func (s *UserStore) UpdateName(id, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	_, err := s.db.Exec(`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`, name, now(), id)
	if err != nil {
		return nil, fmt.Errorf("update user name: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdatePassword(id, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now(), id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
