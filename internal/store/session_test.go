package store

import (
	"testing"
	"time"
)

func setupSessionTestDB(t *testing.T, ttl time.Duration) (*SessionStore, *UserStore) {
	t.Helper()
	db := setupTestDB(t)
	us := NewUserStore(db)
	if _, err := us.Create(helperProfile("u1", "Alice"), ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewSessionStore(db, ttl), us
}

func TestSessionCreate(t *testing.T) {
	ss, _ := setupSessionTestDB(t, time.Hour)

	sess, err := ss.Create("u1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.UserID != "u1" {
		t.Errorf("user_id = %q, want u1", sess.UserID)
	}
	if d := sess.ExpiresAt.Sub(sess.CreatedAt); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("lifetime = %v, want ~1h", d)
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss, _ := setupSessionTestDB(t, time.Hour)
	created, _ := ss.Create("u1")

	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil || sess.ID != created.ID {
		t.Fatalf("session = %+v, want id %d", sess, created.ID)
	}

	missing, err := ss.GetByToken("nonexistent")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent token")
	}
}

func TestSessionExpired(t *testing.T) {
	ss, _ := setupSessionTestDB(t, time.Hour)
	created, _ := ss.Create("u1")
	ss.db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Minute), created.ID)

	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for expired session")
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestSessionDeleteByUserID(t *testing.T) {
	ss, _ := setupSessionTestDB(t, time.Hour)
	ss.Create("u1")
	ss.Create("u1")

	if err := ss.DeleteByUserID("u1"); err != nil {
		t.Fatalf("delete by user id: %v", err)
	}
	if n := countRows(t, ss.db, `SELECT COUNT(*) FROM sessions WHERE user_id = 'u1'`); n != 0 {
		t.Errorf("expected 0 sessions, got %d", n)
	}
}
