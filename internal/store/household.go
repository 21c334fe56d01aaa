package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

const (
	inviteCodePrefix   = "TIDY-"
	inviteCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	inviteCodeAttempts = 5
)

// GenerateInviteCode returns a code like "TIDY-7QX2".
func GenerateInviteCode() (string, error) {
	var b strings.Builder
	b.WriteString(inviteCodePrefix)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := 0; i < 4; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// HouseholdID derives the household id owned by a manager.
func HouseholdID(managerID string) string {
	return "household_" + managerID
}

func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type HouseholdStore struct {
	db       *sql.DB
	newCode  func() (string, error)
	defaults map[string]string
}

type HouseholdOption func(*HouseholdStore)

// WithDefaultSetting seeds key=value into the settings of every new household.
func WithDefaultSetting(key, value string) HouseholdOption {
	return func(s *HouseholdStore) {
		s.defaults[key] = value
	}
}

func NewHouseholdStore(db *sql.DB, opts ...HouseholdOption) *HouseholdStore {
	s := &HouseholdStore{
		db:      db,
		newCode: GenerateInviteCode,
		defaults: map[string]string{
			model.SettingRemoveMemberClearsPointer: "false",
			model.SettingAffirmationsEnabled:       "true",
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func scanHousehold(sc scanner) (*model.Household, error) {
	var h model.Household
	err := sc.Scan(&h.ID, &h.Name, &h.ManagerID, &h.InviteCode, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, name, manager_id, invite_code, created_at, updated_at`

func txFailed(op string, err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Wrap(apperr.KindTransaction, op+" failed", err)
}

// uniqueCode draws invite codes until one is not taken.
func (s *HouseholdStore) uniqueCode(tx *sql.Tx) (string, error) {
	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		var exists int
		err = tx.QueryRow(`SELECT COUNT(*) FROM households WHERE invite_code = ?`, code).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if exists == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free invite code after %d attempts", inviteCodeAttempts)
}

// CreateWithManager writes a manager's user record, their household, the
// membership row and the household's default settings in one transaction.
// Nothing is persisted when any of those writes fails.
func (s *HouseholdStore) CreateWithManager(p model.Profile, passwordHash string) (*model.Created, error) {
	if err := validateProfile(p); err != nil {
		return nil, err
	}
	if p.Role != model.RoleManager {
		return nil, apperr.Invalid("only managers create households")
	}

	hid := HouseholdID(p.ID)
	name := strings.TrimSpace(p.Name) + "'s Household"

	tx, err := s.db.Begin()
	if err != nil {
		return nil, txFailed("create household", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	code, err := s.uniqueCode(tx)
	if err != nil {
		return nil, txFailed("create household", err)
	}

	if err := insertUser(tx, p, &hid, passwordHash); err != nil {
		return nil, txFailed("create household", err)
	}

	ts := now()
	if _, err := tx.Exec(
		`INSERT INTO households (id, name, manager_id, invite_code, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		hid, name, p.ID, code, ts, ts,
	); err != nil {
		return nil, txFailed("create household", fmt.Errorf("insert household: %w", err))
	}

	if _, err := tx.Exec(
		`INSERT INTO household_members (household_id, user_id, joined_at) VALUES (?, ?, ?)`,
		hid, p.ID, ts,
	); err != nil {
		return nil, txFailed("create household", fmt.Errorf("insert membership: %w", err))
	}

	for key, value := range s.defaults {
		if _, err := tx.Exec(
			`INSERT INTO settings (household_id, key, value, updated_at) VALUES (?, ?, ?, ?)`,
			hid, key, value, ts,
		); err != nil {
			return nil, txFailed("create household", fmt.Errorf("seed setting %q: %w", key, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, txFailed("create household", fmt.Errorf("commit tx: %w", err))
	}
	return &model.Created{HouseholdID: hid, InviteCode: code}, nil
}

// LookupByInviteCode never reports a missing code as an error.
func (s *HouseholdStore) LookupByInviteCode(code string) (model.Lookup, error) {
	var l model.Lookup
	err := s.db.QueryRow(
		`SELECT id, name FROM households WHERE invite_code = ?`, normalizeInviteCode(code),
	).Scan(&l.HouseholdID, &l.HouseholdName)
	if err == sql.ErrNoRows {
		return model.Lookup{Found: false}, nil
	}
	if err != nil {
		return model.Lookup{}, fmt.Errorf("lookup invite code: %w", err)
	}
	l.Found = true
	return l, nil
}

// Join points the user at the household and adds them to its member set.
// The user row is created when missing. Joining twice leaves one membership.
func (s *HouseholdStore) Join(code string, p model.Profile) (*model.Household, error) {
	return s.join(code, p, "")
}

// RegisterHelper creates a helper account and joins it to the household in
// the same transaction.
func (s *HouseholdStore) RegisterHelper(code string, p model.Profile, passwordHash string) (*model.Household, error) {
	return s.join(code, p, passwordHash)
}

func (s *HouseholdStore) join(code string, p model.Profile, passwordHash string) (*model.Household, error) {
	if err := validateProfile(p); err != nil {
		return nil, err
	}
	if p.Role == model.RoleManager {
		return nil, apperr.Forbidden("Managers cannot join another household")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, txFailed("join household", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	h, err := scanHousehold(tx.QueryRow(
		`SELECT `+householdCols+` FROM households WHERE invite_code = ?`, normalizeInviteCode(code),
	))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Invalid invite code")
	}
	if err != nil {
		return nil, txFailed("join household", fmt.Errorf("get household: %w", err))
	}

	var role string
	err = tx.QueryRow(`SELECT role FROM users WHERE id = ?`, p.ID).Scan(&role)
	switch {
	case err == sql.ErrNoRows:
		if err := insertUser(tx, p, &h.ID, passwordHash); err != nil {
			return nil, txFailed("join household", err)
		}
	case err != nil:
		return nil, txFailed("join household", fmt.Errorf("get user: %w", err))
	case role == model.RoleManager:
		return nil, apperr.Forbidden("Managers cannot join another household")
	default:
		if _, err := tx.Exec(
			`UPDATE users SET household_id = ?, updated_at = ? WHERE id = ?`, h.ID, now(), p.ID,
		); err != nil {
			return nil, txFailed("join household", fmt.Errorf("update user household: %w", err))
		}
	}

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO household_members (household_id, user_id, joined_at) VALUES (?, ?, ?)`,
		h.ID, p.ID, now(),
	); err != nil {
		return nil, txFailed("join household", fmt.Errorf("insert membership: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, txFailed("join household", fmt.Errorf("commit tx: %w", err))
	}
	return h, nil
}

// Leave removes the user from the household's member set and clears the
// user's household pointer only if it still names this household. Leaving a
// household the user already left is a no-op.
func (s *HouseholdStore) Leave(userID, householdID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return txFailed("leave household", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		return txFailed("leave household", fmt.Errorf("get user: %w", err))
	}
	if exists == 0 {
		return apperr.NotFound("User not found")
	}

	var managerID string
	err = tx.QueryRow(`SELECT manager_id FROM households WHERE id = ?`, householdID).Scan(&managerID)
	if err == sql.ErrNoRows {
		return apperr.NotFound("Household not found")
	}
	if err != nil {
		return txFailed("leave household", fmt.Errorf("get household: %w", err))
	}
	if managerID == userID {
		return apperr.Forbidden("The manager cannot leave their own household")
	}

	if _, err := tx.Exec(
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ?`, householdID, userID,
	); err != nil {
		return txFailed("leave household", fmt.Errorf("delete membership: %w", err))
	}
	if _, err := tx.Exec(
		`UPDATE users SET household_id = NULL, updated_at = ? WHERE id = ? AND household_id = ?`,
		now(), userID, householdID,
	); err != nil {
		return txFailed("leave household", fmt.Errorf("clear user household: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return txFailed("leave household", fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// RemoveMember drops a member from the household's member set. The removed
// user's own pointer is cleared only when the household's
// remove_member_clears_pointer setting is "true".
func (s *HouseholdStore) RemoveMember(managerID, householdID, memberID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return txFailed("remove member", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	var actualManager string
	err = tx.QueryRow(`SELECT manager_id FROM households WHERE id = ?`, householdID).Scan(&actualManager)
	if err == sql.ErrNoRows {
		return apperr.NotFound("Household not found")
	}
	if err != nil {
		return txFailed("remove member", fmt.Errorf("get household: %w", err))
	}
	if actualManager != managerID {
		return apperr.Forbidden("Only the household manager can remove members")
	}
	if memberID == managerID {
		return apperr.Invalid("The manager cannot be removed from their household")
	}

	if _, err := tx.Exec(
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ?`, householdID, memberID,
	); err != nil {
		return txFailed("remove member", fmt.Errorf("delete membership: %w", err))
	}

	var clears string
	err = tx.QueryRow(
		`SELECT value FROM settings WHERE household_id = ? AND key = ?`,
		householdID, model.SettingRemoveMemberClearsPointer,
	).Scan(&clears)
	if err != nil && err != sql.ErrNoRows {
		return txFailed("remove member", fmt.Errorf("get setting: %w", err))
	}
	if clears == "true" {
		if _, err := tx.Exec(
			`UPDATE users SET household_id = NULL, updated_at = ? WHERE id = ? AND household_id = ?`,
			now(), memberID, householdID,
		); err != nil {
			return txFailed("remove member", fmt.Errorf("clear member household: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return txFailed("remove member", fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *HouseholdStore) GetByID(id string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// Get returns the household with its member profiles. Members whose user
// record is missing are dropped.
func (s *HouseholdStore) Get(id string) (*model.HouseholdDetail, error) {
	h, err := s.GetByID(id)
	if err != nil || h == nil {
		return nil, err
	}
	members, err := s.ListMembers(id)
	if err != nil {
		return nil, err
	}
	return &model.HouseholdDetail{Household: *h, Members: members}, nil
}

func (s *HouseholdStore) ListMembers(householdID string) ([]model.Member, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.name, u.email, u.role
		 FROM household_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.household_id = ?
		 ORDER BY m.joined_at ASC, u.name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Role); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *HouseholdStore) IsMember(householdID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

// MembershipIDs returns the ids of every household the user is a member of.
func (s *HouseholdStore) MembershipIDs(userID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT household_id FROM household_members WHERE user_id = ? ORDER BY joined_at ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListForUser lists the user's households with their manager. Households
// whose manager record cannot be resolved are omitted.
func (s *HouseholdStore) ListForUser(userID string) ([]model.HouseholdSummary, error) {
	rows, err := s.db.Query(
		`SELECT h.id, h.name, h.invite_code, u.id, u.name, u.email, u.role
		 FROM household_members m
		 JOIN households h ON h.id = m.household_id
		 JOIN users u ON u.id = h.manager_id
		 WHERE m.user_id = ?
		 ORDER BY h.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	households := []model.HouseholdSummary{}
	for rows.Next() {
		var h model.HouseholdSummary
		if err := rows.Scan(&h.ID, &h.Name, &h.InviteCode,
			&h.Manager.ID, &h.Manager.Name, &h.Manager.Email, &h.Manager.Role); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, h)
	}
	return households, rows.Err()
}

func (s *HouseholdStore) Rename(managerID, householdID, name string) (*model.Household, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	h, err := s.GetByID(householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("Household not found")
	}
	if h.ManagerID != managerID {
		return nil, apperr.Forbidden("Only the household manager can rename it")
	}
	if _, err := s.db.Exec(
		`UPDATE households SET name = ?, updated_at = ? WHERE id = ?`, name, now(), householdID,
	); err != nil {
		return nil, fmt.Errorf("rename household: %w", err)
	}
	return s.GetByID(householdID)
}
