package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/assistant"
	"github.com/01001010sedano/TidyTapv1/internal/auth"
	"github.com/01001010sedano/TidyTapv1/internal/config"
	"github.com/01001010sedano/TidyTapv1/internal/email"
	"github.com/01001010sedano/TidyTapv1/internal/handler"
	"github.com/01001010sedano/TidyTapv1/internal/metrics"
	"github.com/01001010sedano/TidyTapv1/internal/middleware"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/push"
	"github.com/01001010sedano/TidyTapv1/internal/store"
	ws "github.com/01001010sedano/TidyTapv1/internal/websocket"
)

type Server struct {
	db             *sql.DB
	cfg            *config.Config
	hub            *ws.Hub
	metrics        *metrics.Metrics
	authH          *handler.AuthHandler
	householdH     *handler.HouseholdHandler
	taskH          *handler.TaskHandler
	templateH      *handler.TemplateHandler
	assistantH     *handler.AssistantHandler
	settingsH      *handler.SettingsHandler
	pushH          *handler.PushHandler
	sessionStore   *store.SessionStore
	resetStore     *store.PasswordResetStore
	userStore      *store.UserStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	pushScheduler  *push.Scheduler
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger, m)
	loc := cfg.Location()

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db,
		store.WithDefaultSetting(model.SettingRemoveMemberClearsPointer, strconv.FormatBool(cfg.Households.RemoveMemberClearsPointer)),
	)
	sessionStore := store.NewSessionStore(db, cfg.Session.TTL)
	resetStore := store.NewPasswordResetStore(db)
	taskStore := store.NewTaskStore(db)
	templateStore := store.NewTemplateStore(db)
	suggestionStore := store.NewSuggestionStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)

	m.RegisterDBStatsCollector(db.Stats)

	emailClient := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, cfg.Server.BaseURL)

	// Push notification service + scheduler
	pushLogger := logger.With("component", "push")
	var pushSvc *push.Service
	var sender push.Sender
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subject)
		sender = pushSvc
	}
	notifier := push.NewNotifier(sender, pushStore, pushLogger, m)
	var pushSched *push.Scheduler
	if pushSvc != nil {
		pushSched = push.NewScheduler(notifier, taskStore, pushStore, cfg.Push.ReminderLead, pushLogger, m)
	}

	llm := assistant.NewClient(cfg.Assistant.APIKey, cfg.Assistant.Timeout,
		assistant.WithBaseURL(cfg.Assistant.BaseURL),
		assistant.WithModel(cfg.Assistant.Model),
	)
	assistantSvc := assistant.NewService(llm, taskStore, suggestionStore, householdStore,
		logger.With("component", "assistant"),
		assistant.WithMetrics(m),
		assistant.WithLocation(loc),
	)

	return &Server{
		db:             db,
		cfg:            cfg,
		hub:            hub,
		metrics:        m,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, resetStore, emailClient, logger.With("component", "auth")),
		householdH:     handler.NewHouseholdHandler(householdStore, emailClient, hub, m, logger.With("component", "household")),
		taskH:          handler.NewTaskHandler(taskStore, householdStore, userStore, notifier, hub, loc, logger.With("component", "task")),
		templateH:      handler.NewTemplateHandler(templateStore, taskStore, householdStore, notifier, hub, logger.With("component", "template")),
		assistantH:     handler.NewAssistantHandler(assistantSvc, suggestionStore, householdStore, settingsStore, notifier, hub, logger.With("component", "assistant_handler")),
		settingsH:      handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		pushH:          handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		sessionStore:   sessionStore,
		resetStore:     resetStore,
		userStore:      userStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		pushScheduler:  pushSched,
		logger:         logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// PushScheduler returns the reminder scheduler, nil when push is not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// RunMaintenance purges expired sessions, reset tokens and rate limit
// entries every interval until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context, interval time.Duration) {
	go s.rateLimiter.RunCleanup(interval, ctx.Done())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Server) cleanup() {
	if n, err := s.sessionStore.DeleteExpired(); err != nil {
		s.logger.Error("delete expired sessions", "error", err)
	} else if n > 0 {
		s.logger.Info("deleted expired sessions", "count", n)
	}
	if n, err := s.resetStore.DeleteExpired(); err != nil {
		s.logger.Error("delete expired password resets", "error", err)
	} else if n > 0 {
		s.logger.Info("deleted expired password resets", "count", n)
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes (no auth required)
	mux.Handle("POST /api/auth/register", s.authLimited(s.authH.Register))
	mux.Handle("POST /api/auth/login", s.authLimited(s.authH.Login))
	mux.Handle("POST /api/auth/forgot-password", s.authLimited(s.authH.ForgotPassword))
	mux.Handle("POST /api/auth/reset-password", s.authLimited(s.authH.ResetPassword))
	mux.Handle("POST /api/households/lookup", s.authLimited(s.householdH.Lookup))
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.registerProtectedRoutes(mux)

	var h http.Handler = mux
	h = middleware.Instrument(s.metrics)(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) authLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.ByIP, s.cfg.RateLimit.Auth, s.cfg.RateLimit.Window)(h)
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(s.sessionStore, s.userStore, s.householdStore, s.logger)(h)
}

func (s *Server) manager(h http.HandlerFunc) http.Handler {
	return s.authed(middleware.RequireManager(h).ServeHTTP)
}

// assistantLimited caps model calls per user. It must sit inside RequireAuth.
func (s *Server) assistantLimited(h http.HandlerFunc) http.HandlerFunc {
	byUser := func(r *http.Request) string {
		return "assistant:" + auth.UserID(r.Context())
	}
	return middleware.RateLimit(s.rateLimiter, byUser, s.cfg.RateLimit.Assistant, s.cfg.RateLimit.Window)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session
	mux.Handle("POST /api/auth/logout", s.authed(s.authH.Logout))
	mux.Handle("GET /api/me", s.authed(s.authH.Me))

	// Households
	mux.Handle("GET /api/households", s.authed(s.householdH.Mine))
	mux.Handle("GET /api/households/{id}", s.authed(s.householdH.Get))
	mux.Handle("POST /api/households/join", s.authed(s.householdH.Join))
	mux.Handle("POST /api/households/{id}/leave", s.authed(s.householdH.Leave))
	mux.Handle("DELETE /api/households/{id}/members/{member_id}", s.manager(s.householdH.RemoveMember))
	mux.Handle("PUT /api/households/{id}", s.manager(s.householdH.Rename))
	mux.Handle("POST /api/households/{id}/invite", s.manager(s.householdH.Invite))

	// Tasks
	mux.Handle("GET /api/tasks", s.authed(s.taskH.List))
	mux.Handle("POST /api/tasks", s.manager(s.taskH.Create))
	mux.Handle("GET /api/tasks/summary", s.authed(s.taskH.Summary))
	mux.Handle("GET /api/tasks/calendar", s.authed(s.taskH.Calendar))
	mux.Handle("GET /api/tasks/log", s.authed(s.taskH.Log))
	mux.Handle("GET /api/tasks/{id}", s.authed(s.taskH.Get))
	mux.Handle("PUT /api/tasks/{id}", s.manager(s.taskH.Update))
	mux.Handle("DELETE /api/tasks/{id}", s.manager(s.taskH.Delete))
	mux.Handle("POST /api/tasks/{id}/status", s.authed(s.taskH.Status))

	// Templates
	mux.Handle("GET /api/templates", s.authed(s.templateH.List))
	mux.Handle("POST /api/templates", s.manager(s.templateH.Create))
	mux.Handle("GET /api/templates/categories", s.authed(s.templateH.Categories))
	mux.Handle("POST /api/templates/defaults", s.manager(s.templateH.SeedDefaults))
	mux.Handle("PUT /api/templates/{id}", s.manager(s.templateH.Update))
	mux.Handle("DELETE /api/templates/{id}", s.manager(s.templateH.Delete))
	mux.Handle("POST /api/templates/{id}/instantiate", s.manager(s.templateH.Instantiate))

	// Assistant
	mux.Handle("POST /api/assistant/chat", s.authed(s.assistantLimited(s.assistantH.Chat)))
	mux.Handle("POST /api/assistant/suggest", s.authed(s.assistantLimited(s.assistantH.Suggest)))
	mux.Handle("GET /api/assistant/affirmation", s.authed(s.assistantH.Affirmation))
	mux.Handle("POST /api/assistant/propose", s.manager(s.assistantLimited(s.assistantH.Propose)))
	mux.Handle("GET /api/suggestions", s.authed(s.assistantH.ListSuggestions))
	mux.Handle("POST /api/suggestions/{id}/accept", s.manager(s.assistantH.AcceptSuggestion))
	mux.Handle("POST /api/suggestions/{id}/ignore", s.manager(s.assistantH.IgnoreSuggestion))

	// Settings
	mux.Handle("GET /api/settings", s.authed(s.settingsH.Get))
	mux.Handle("PUT /api/settings", s.manager(s.settingsH.Update))

	// Push notifications
	mux.Handle("POST /api/push/subscribe", s.authed(s.pushH.Subscribe))
	mux.Handle("GET /api/push/subscriptions", s.authed(s.pushH.ListSubscriptions))
	mux.Handle("DELETE /api/push/subscriptions/{id}", s.authed(s.pushH.Unsubscribe))
	mux.Handle("GET /api/push/vapid-key", s.authed(s.pushH.GetVAPIDKey))

	// WebSocket
	mux.Handle("GET /ws", s.authed(ws.HandleWebSocket(s.hub, s.householdStore, s.cfg.Server.AllowedOrigins)))
}
