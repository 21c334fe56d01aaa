package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/metrics"
	"github.com/01001010sedano/TidyTapv1/internal/model"
)

type TaskStore interface {
	Create(householdID, createdBy string, d model.TaskDraft) (*model.Task, error)
	ListByHouseholds(householdIDs []string) ([]model.Task, error)
}

type SuggestionCreator interface {
	Create(sg model.Suggestion) (*model.Suggestion, error)
}

type MemberLister interface {
	ListMembers(householdID string) ([]model.Member, error)
}

// Caller identifies who is talking to the assistant.
type Caller struct {
	UserID      string
	Role        string
	HouseholdID string
}

// ChatResult holds the assistant's replies for one user message and the task
// an /add command created, if any.
type ChatResult struct {
	Replies []string    `json:"replies"`
	Task    *model.Task `json:"task,omitempty"`
}

type Service struct {
	llm         Completer
	tasks       TaskStore
	suggestions SuggestionCreator
	members     MemberLister
	logger      *slog.Logger
	metrics     *metrics.Metrics
	loc         *time.Location
	now         func() time.Time

	mu             sync.Mutex
	affirmation    string
	affirmationDay string
}

type ServiceOption func(*Service)

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the zone used for due dates and the affirmation day.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(llm Completer, tasks TaskStore, suggestions SuggestionCreator, members MemberLister, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		llm:         llm,
		tasks:       tasks,
		suggestions: suggestions,
		members:     members,
		logger:      logger.With("component", "assistant"),
		loc:         time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) observe(kind, outcome string) {
	s.metrics.ObserveAssistant(kind, outcome)
}

func trimHistory(history []Message) []Message {
	kept := make([]Message, 0, len(history))
	for _, m := range history {
		if (m.Role == "user" || m.Role == "assistant") && strings.TrimSpace(m.Content) != "" {
			kept = append(kept, m)
		}
	}
	if len(kept) > maxHistory {
		kept = kept[len(kept)-maxHistory:]
	}
	return kept
}

// Chat answers one user message. Messages starting with /add create a task
// for managers. Model and parse failures become apology replies; the only
// error returned is for an empty message.
func (s *Service) Chat(ctx context.Context, c Caller, history []Message, text string) (*ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Invalid("message is required")
	}

	isAdd := strings.HasPrefix(text, "/add")
	if isAdd && c.Role != model.RoleManager {
		s.observe("chat", "rejected")
		return &ChatResult{Replies: []string{ReplyHelperAdd}}, nil
	}
	if isAdd && c.HouseholdID == "" {
		s.observe("chat", "rejected")
		return &ChatResult{Replies: []string{ReplyNoHousehold}}, nil
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: chatSystemPrompt})
	msgs = append(msgs, trimHistory(history)...)
	msgs = append(msgs, Message{Role: "user", Content: text})

	reply, err := s.llm.Complete(ctx, msgs, 0)
	if err != nil {
		s.logger.Error("chat completion failed", "user_id", c.UserID, "error", err)
		s.observe("chat", "error")
		return &ChatResult{Replies: []string{ReplyFailed}}, nil
	}

	result := &ChatResult{Replies: []string{reply}}
	if !isAdd {
		s.observe("chat", "ok")
		return result, nil
	}

	task, fallback := s.addTask(c, reply)
	if fallback != "" {
		result.Replies = append(result.Replies, fallback)
		return result, nil
	}
	result.Task = task
	s.observe("chat", "ok")
	return result, nil
}

// addTask turns an /add reply into a stored task. A non-empty second return
// is the reply to show instead.
func (s *Service) addTask(c Caller, reply string) (*model.Task, string) {
	cmd, err := parseTaskCommand(reply, s.now(), s.loc)
	if errors.Is(err, errMissingFields) {
		s.observe("chat", "parse_error")
		return nil, ReplyMissingFields
	}
	if err != nil {
		s.logger.Warn("unparseable task command", "user_id", c.UserID, "error", err)
		s.observe("chat", "parse_error")
		return nil, ReplyParseFailed
	}

	members, err := s.members.ListMembers(c.HouseholdID)
	if err != nil {
		s.logger.Error("list members for task command", "household_id", c.HouseholdID, "error", err)
		s.observe("chat", "error")
		return nil, ReplyFailed
	}

	task, err := s.tasks.Create(c.HouseholdID, c.UserID, model.TaskDraft{
		Title:       cmd.Title,
		Description: cmd.Description,
		Priority:    cmd.Priority,
		Category:    cmd.Category,
		AssignedTo:  []model.Assignee{resolveAssignee(cmd.Assignee, members)},
		DueTime:     cmd.Due,
		Repeat:      cmd.Repeat,
	})
	if err != nil {
		s.logger.Error("create task from chat", "household_id", c.HouseholdID, "error", err)
		s.observe("chat", "error")
		return nil, ReplyFailed
	}
	s.logger.Info("task created from chat", "task_id", task.ID, "household_id", c.HouseholdID)
	return task, ""
}

// SuggestFields proposes priority, category and repeat rule for a task being
// written. Any failure yields a zero suggestion with OK false.
func (s *Service) SuggestFields(ctx context.Context, title, description string) FieldSuggestion {
	title = strings.TrimSpace(title)
	if title == "" {
		return FieldSuggestion{}
	}

	reply, err := s.llm.Complete(ctx, []Message{
		{Role: "system", Content: suggestSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Title: %s\nDescription: %s", title, strings.TrimSpace(description))},
	}, 0)
	if err != nil {
		s.logger.Warn("field suggestion failed", "error", err)
		s.observe("suggest", "error")
		return FieldSuggestion{}
	}

	fs, err := parseFieldSuggestion(reply)
	if err != nil {
		s.logger.Warn("unparseable field suggestion", "error", err)
		s.observe("suggest", "parse_error")
		return FieldSuggestion{}
	}
	s.observe("suggest", "ok")
	return fs
}

// Affirmation returns the day's affirmation, asking the model at most once
// per calendar day. Failures return the fallback and are retried on the
// next call.
func (s *Service) Affirmation(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.now().In(s.loc).Format("2006-01-02")
	if s.affirmationDay == day && s.affirmation != "" {
		return s.affirmation
	}

	reply, err := s.llm.Complete(ctx, []Message{
		{Role: "system", Content: affirmationSystemPrompt},
		{Role: "user", Content: affirmationUserPrompt},
	}, affirmationMaxTokens)
	if err != nil {
		s.logger.Warn("affirmation failed", "error", err)
		s.observe("affirmation", "error")
		return FallbackAffirmation
	}

	text := strings.TrimSpace(strings.ReplaceAll(reply, `"`, ""))
	if text == "" {
		s.observe("affirmation", "parse_error")
		return FallbackAffirmation
	}
	s.affirmation = text
	s.affirmationDay = day
	s.observe("affirmation", "ok")
	return text
}

// Propose asks for follow-up tasks based on the household's most recently
// completed tasks and stores them as pending suggestions. Malformed model
// output stores nothing and is not an error.
func (s *Service) Propose(ctx context.Context, c Caller, householdID string) ([]model.Suggestion, error) {
	tasks, err := s.tasks.ListByHouseholds([]string{householdID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var done []model.Task
	for _, t := range tasks {
		if t.Status == model.StatusCompleted && t.CompletedAt != nil {
			done = append(done, t)
		}
	}
	if len(done) == 0 {
		return nil, nil
	}
	slices.SortStableFunc(done, func(a, b model.Task) int {
		return b.CompletedAt.Compare(*a.CompletedAt)
	})
	if len(done) > recentCompleted {
		done = done[:recentCompleted]
	}

	known := make(map[string]bool, len(done))
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today is %s. Recently completed tasks:\n", s.now().In(s.loc).Format("2006-01-02"))
	for _, t := range done {
		known[t.ID] = true
		fmt.Fprintf(&sb, "- id %s: %s (category %q, completed %s)\n",
			t.ID, t.Title, t.Category, t.CompletedAt.In(s.loc).Format("2006-01-02"))
	}

	reply, err := s.llm.Complete(ctx, []Message{
		{Role: "system", Content: proposeSystemPrompt},
		{Role: "user", Content: sb.String()},
	}, 0)
	if err != nil {
		s.logger.Warn("proposal request failed", "household_id", householdID, "error", err)
		s.observe("propose", "error")
		return nil, err
	}

	proposals, err := parseProposals(reply, s.loc)
	if err != nil {
		s.logger.Warn("unparseable proposals", "household_id", householdID, "error", err)
		s.observe("propose", "parse_error")
		return nil, nil
	}
	if len(proposals) > maxProposals {
		proposals = proposals[:maxProposals]
	}

	stored := make([]model.Suggestion, 0, len(proposals))
	for _, p := range proposals {
		p.HouseholdID = householdID
		p.CreatedBy = c.UserID
		if !known[p.CreatedFromTaskID] {
			p.CreatedFromTaskID = ""
		}
		sg, err := s.suggestions.Create(p)
		if err != nil {
			return stored, fmt.Errorf("store suggestion: %w", err)
		}
		stored = append(stored, *sg)
	}
	s.observe("propose", "ok")
	return stored, nil
}
