package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/model"
)

const passwordResetTTL = time.Hour

type PasswordResetStore struct {
	db *sql.DB
}

func NewPasswordResetStore(db *sql.DB) *PasswordResetStore {
	return &PasswordResetStore{db: db}
}

func scanPasswordReset(sc scanner) (*model.PasswordReset, error) {
	var pr model.PasswordReset
	var usedAt sql.NullTime
	err := sc.Scan(&pr.ID, &pr.Token, &pr.UserID, &pr.ExpiresAt, &usedAt, &pr.CreatedAt)
	if err != nil {
		return nil, err
	}
	pr.UsedAt = timePtr(usedAt)
	return &pr, nil
}

const passwordResetCols = `id, token, user_id, expires_at, used_at, created_at`

// Create issues a one-hour reset token. Earlier pending tokens of the same
// user are invalidated first.
func (s *PasswordResetStore) Create(userID string) (*model.PasswordReset, error) {
	ts := now()
	if _, err := s.db.Exec(
		`UPDATE password_resets SET used_at = ? WHERE user_id = ? AND used_at IS NULL AND expires_at > ?`,
		ts, userID, ts,
	); err != nil {
		return nil, fmt.Errorf("invalidate previous resets: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	result, err := s.db.Exec(
		`INSERT INTO password_resets (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, userID, ts.Add(passwordResetTTL), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert password reset: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+passwordResetCols+` FROM password_resets WHERE id = ?`, id)
	return scanPasswordReset(row)
}

// Consume marks a valid token used and returns it. Unknown, expired and
// already used tokens yield nil.
func (s *PasswordResetStore) Consume(token string) (*model.PasswordReset, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	pr, err := scanPasswordReset(tx.QueryRow(
		`SELECT `+passwordResetCols+` FROM password_resets WHERE token = ? AND used_at IS NULL AND expires_at > ?`,
		token, ts,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get password reset: %w", err)
	}
	if _, err := tx.Exec(`UPDATE password_resets SET used_at = ? WHERE id = ?`, ts, pr.ID); err != nil {
		return nil, fmt.Errorf("mark password reset used: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	pr.UsedAt = &ts
	return pr, nil
}

func (s *PasswordResetStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM password_resets WHERE expires_at <= ?`, now())
	if err != nil {
		return 0, fmt.Errorf("delete expired password resets: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
