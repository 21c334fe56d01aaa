package store

import (
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(householdID, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE household_id = ? AND key = ?`, householdID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Enabled reports whether a boolean setting is "true". Missing keys are false.
func (s *SettingsStore) Enabled(householdID, key string) (bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE household_id = ? AND key = ?`, householdID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value == "true", nil
}

func (s *SettingsStore) GetAll(householdID string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT key, value FROM settings WHERE household_id = ? ORDER BY key`, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func validateSetting(key, value string) error {
	if !slices.Contains(model.SettingKeys, key) {
		return apperr.Invalid(fmt.Sprintf("unknown setting %q", key))
	}
	if value != "true" && value != "false" {
		return apperr.Invalid(fmt.Sprintf("setting %q must be true or false", key))
	}
	return nil
}

const upsertSetting = `INSERT INTO settings (household_id, key, value, updated_at) VALUES (?, ?, ?, ?)
	 ON CONFLICT(household_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (s *SettingsStore) Set(householdID, key, value string) error {
	if err := validateSetting(key, value); err != nil {
		return err
	}
	if _, err := s.db.Exec(upsertSetting, householdID, key, value, now()); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// SetMany writes all values or none. Every key is validated before the
// first write.
func (s *SettingsStore) SetMany(householdID string, values map[string]string) error {
	keys := slices.Sorted(maps.Keys(values))
	for _, key := range keys {
		if err := validateSetting(key, values[key]); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	for _, key := range keys {
		if _, err := tx.Exec(upsertSetting, householdID, key, values[key], ts); err != nil {
			return fmt.Errorf("set setting %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
