package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/middleware"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/store"
)

// Mailer sends the account emails.
type Mailer interface {
	SendPasswordReset(toEmail, token string) error
	SendInvite(toEmail, inviterName, householdName, inviteCode string) error
}

type AuthHandler struct {
	userStore      *store.UserStore
	householdStore *store.HouseholdStore
	sessionStore   *store.SessionStore
	resetStore     *store.PasswordResetStore
	mailer         Mailer
	logger         *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	hs *store.HouseholdStore,
	ss *store.SessionStore,
	rs *store.PasswordResetStore,
	mailer Mailer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:      us,
		householdStore: hs,
		sessionStore:   ss,
		resetStore:     rs,
		mailer:         mailer,
		logger:         logger,
	}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	InviteCode string `json:"invite_code"`
}

type sessionResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(w, h.logger, err, "Failed to register")
		return
	}

	p := model.Profile{
		ID:    uuid.New().String(),
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	}
	code := strings.TrimSpace(req.InviteCode)

	switch {
	case p.Role == model.RoleManager:
		_, err = h.householdStore.CreateWithManager(p, hash)
	case code != "":
		_, err = h.householdStore.RegisterHelper(code, p, hash)
	default:
		_, err = h.userStore.Create(p, hash)
	}
	if err != nil {
		fail(w, h.logger, err, "Failed to register")
		return
	}

	h.startSession(w, r, p.ID, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		fail(w, h.logger, err, "Failed to log in")
		return
	}
	if user == nil || user.PasswordHash == "" {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		fail(w, h.logger, err, "Failed to log in")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.startSession(w, r, user.ID, http.StatusOK)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, userID string, status int) {
	sess, err := h.sessionStore.Create(userID)
	if err != nil {
		fail(w, h.logger, err, "Failed to create session")
		return
	}
	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		fail(w, h.logger, err, "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.sessionStore.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	writeJSON(w, status, sessionResponse{Token: sess.Token, User: *user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	if err := h.sessionStore.Delete(sess.SessionID); err != nil {
		h.logger.Error("delete session", "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	model.User
	Households []model.HouseholdSummary `json:"households"`
}

// Me returns the signed-in user with every household they belong to.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	user, err := h.userStore.GetByID(sess.UserID)
	if err != nil {
		fail(w, h.logger, err, "Failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	households, err := h.householdStore.ListForUser(user.ID)
	if err != nil {
		fail(w, h.logger, err, "Failed to load households")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: *user, Households: households})
}

// ForgotPassword always answers 202 so the response does not reveal which
// emails have accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}
	defer writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("forgot password lookup", "error", err)
		return
	}
	if user == nil {
		return
	}

	reset, err := h.resetStore.Create(user.ID)
	if err != nil {
		h.logger.Error("create password reset", "error", err)
		return
	}
	if err := h.mailer.SendPasswordReset(user.Email, reset.Token); err != nil {
		h.logger.Error("send password reset", "error", err)
	}
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, err, "Invalid request")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(w, h.logger, err, "Failed to reset password")
		return
	}

	reset, err := h.resetStore.Consume(req.Token)
	if err != nil {
		fail(w, h.logger, err, "Failed to reset password")
		return
	}
	if reset == nil {
		writeError(w, http.StatusBadRequest, "Reset link has expired or was already used")
		return
	}

	if err := h.userStore.UpdatePassword(reset.UserID, hash); err != nil {
		fail(w, h.logger, err, "Failed to reset password")
		return
	}
	if err := h.sessionStore.DeleteByUserID(reset.UserID); err != nil {
		h.logger.Error("revoke sessions", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
