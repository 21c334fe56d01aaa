package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/store"
)

const SessionCookieName = "tidytap_session"

// SessionToken returns the session token from the session cookie or an
// "Authorization: Bearer" header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RequireAuth validates the session token and puts an auth.Session built
// from the user's current record into the request context. The session's
// household is the user's household pointer only while the user is still a
// member of it.
func RequireAuth(sessionStore *store.SessionStore, userStore *store.UserStore, householdStore *store.HouseholdStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			sess, err := sessionStore.GetByToken(token)
			if err != nil {
				logger.Error("load session", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if sess == nil {
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}

			user, err := userStore.GetByID(sess.UserID)
			if err != nil {
				logger.Error("load session user", "user_id", sess.UserID, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if user == nil {
				writeError(w, http.StatusUnauthorized, "session expired")
				return
			}

			s := auth.Session{
				UserID:    user.ID,
				Name:      user.Name,
				Email:     user.Email,
				Role:      user.Role,
				SessionID: sess.ID,
			}
			if user.HouseholdID != nil {
				member, err := householdStore.IsMember(*user.HouseholdID, user.ID)
				if err != nil {
					logger.Error("check membership", "user_id", user.ID, "error", err)
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				// A removed member may keep a stale pointer.
				if member {
					s.HouseholdID = *user.HouseholdID
				}
			}

			ctx := auth.WithSession(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager rejects sessions whose role is not manager.
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsManager(r.Context()) {
			writeError(w, http.StatusForbidden, "only managers can do this")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
