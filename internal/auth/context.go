package auth

import (
	"context"

	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/task"
)

type contextKey struct{}

// Session is the signed-in user for one request. It is built by the auth
// middleware from the session token and the user's record and handed to
// handlers through the request context.
type Session struct {
	UserID      string
	Name        string
	Email       string
	Role        string
	HouseholdID string
	SessionID   int64
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

func UserID(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.UserID
}

func HouseholdID(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.HouseholdID
}

func IsManager(ctx context.Context) bool {
	s, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return s.Role == model.RoleManager
}

// Viewer returns the task visibility identity for the session.
func (s Session) Viewer() task.Viewer {
	return task.Viewer{UserID: s.UserID, Role: s.Role, HouseholdID: s.HouseholdID}
}
