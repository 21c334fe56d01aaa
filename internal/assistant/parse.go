package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
	"github.com/01001010sedano/TidyTapv1/internal/model"
	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

var errMissingFields = errors.New("missing title or assignee")

// extractJSON returns the JSON value embedded in a model reply. Models wrap
// objects in prose or ``` fences, so the outermost braces (or brackets when
// open is '[') are taken.
func extractJSON(reply string, open, close byte) (string, bool) {
	start := strings.IndexByte(reply, open)
	end := strings.LastIndexByte(reply, close)
	if start < 0 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}

type rawTask struct {
	Title       string          `json:"title"`
	Task        string          `json:"task"`
	Description string          `json:"description"`
	Priority    string          `json:"priority"`
	Category    string          `json:"category"`
	AssignedTo  json.RawMessage `json:"assignedTo"`
	Assignee    json.RawMessage `json:"assignee"`
	DueDate     string          `json:"dueDate"`
	DueTime     string          `json:"dueTime"`
	Repeat      json.RawMessage `json:"repeat"`
}

// taskCommand is a task extracted from an /add reply. Assignee is the raw
// id or name the model produced; it is resolved against members later.
type taskCommand struct {
	Title       string
	Description string
	Priority    string
	Category    string
	Assignee    string
	Due         time.Time
	Repeat      recurrence.Rule
}

func parseTaskCommand(reply string, now time.Time, loc *time.Location) (taskCommand, error) {
	obj, ok := extractJSON(reply, '{', '}')
	if !ok {
		return taskCommand{}, apperr.New(apperr.KindParse, "no JSON object in reply")
	}
	var raw rawTask
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return taskCommand{}, apperr.Wrap(apperr.KindParse, "decode task JSON", err)
	}

	cmd := taskCommand{
		Title:       strings.TrimSpace(firstNonEmpty(raw.Title, raw.Task)),
		Description: strings.TrimSpace(raw.Description),
		Priority:    normalizePriority(raw.Priority, model.PriorityMedium),
		Category:    strings.TrimSpace(raw.Category),
		Assignee:    assigneeRef(raw.AssignedTo),
		Repeat:      decodeRepeat(raw.Repeat),
	}
	if cmd.Assignee == "" {
		cmd.Assignee = assigneeRef(raw.Assignee)
	}
	if cmd.Title == "" || cmd.Assignee == "" {
		return cmd, errMissingFields
	}

	due, err := parseDue(raw.DueDate, raw.DueTime, now, loc)
	if err != nil {
		return cmd, err
	}
	cmd.Due = due
	return cmd, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func normalizePriority(p, fallback string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if model.ValidPriority(p) {
		return p
	}
	return fallback
}

// assigneeRef accepts "Ana", {"id": "...", "name": "..."} or a list of
// either and returns the first reference found.
func assigneeRef(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var a model.Assignee
	if json.Unmarshal(raw, &a) == nil {
		return strings.TrimSpace(firstNonEmpty(a.ID, a.Name))
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		for _, item := range list {
			if ref := assigneeRef(item); ref != "" {
				return ref
			}
		}
	}
	return ""
}

// decodeRepeat tolerates a bare frequency string. Anything it cannot read
// means the task does not repeat.
func decodeRepeat(raw json.RawMessage) recurrence.Rule {
	if len(raw) == 0 {
		return recurrence.Rule{}
	}
	var freq string
	if json.Unmarshal(raw, &freq) == nil {
		raw, _ = json.Marshal(map[string]string{"frequency": freq})
	}
	var r recurrence.Rule
	if err := json.Unmarshal(raw, &r); err != nil {
		return recurrence.Rule{}
	}
	return r
}

func parseDue(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return now, nil
	}
	if clock == "" {
		clock = "00:00"
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindParse, "invalid due date", err)
	}
	return due, nil
}

// resolveAssignee matches ref against member ids, then names without regard
// to case. An unknown reference becomes both id and name.
func resolveAssignee(ref string, members []model.Member) model.Assignee {
	for _, m := range members {
		if m.ID == ref {
			return model.Assignee{ID: m.ID, Name: m.Name}
		}
	}
	for _, m := range members {
		if strings.EqualFold(m.Name, ref) {
			return model.Assignee{ID: m.ID, Name: m.Name}
		}
	}
	return model.Assignee{ID: ref, Name: ref}
}

type rawFields struct {
	Priority string          `json:"priority"`
	Category string          `json:"category"`
	Repeat   json.RawMessage `json:"repeat"`
}

// FieldSuggestion is the assistant's proposal for a task's priority,
// category and repeat rule. OK is false when the model gave nothing usable.
type FieldSuggestion struct {
	Priority string          `json:"priority"`
	Category string          `json:"category"`
	Repeat   recurrence.Rule `json:"repeat"`
	OK       bool            `json:"ok"`
}

func parseFieldSuggestion(reply string) (FieldSuggestion, error) {
	obj, ok := extractJSON(reply, '{', '}')
	if !ok {
		return FieldSuggestion{}, apperr.New(apperr.KindParse, "no JSON object in reply")
	}
	var raw rawFields
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return FieldSuggestion{}, apperr.Wrap(apperr.KindParse, "decode field suggestion", err)
	}
	priority := normalizePriority(raw.Priority, "")
	if priority == "" {
		return FieldSuggestion{}, apperr.New(apperr.KindParse, fmt.Sprintf("invalid priority %q", raw.Priority))
	}
	return FieldSuggestion{
		Priority: priority,
		Category: strings.TrimSpace(raw.Category),
		Repeat:   decodeRepeat(raw.Repeat),
		OK:       true,
	}, nil
}

type rawProposal struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Priority          string          `json:"priority"`
	SuggestedDate     string          `json:"suggestedDate"`
	Reason            string          `json:"reason"`
	CreatedFromTaskID string          `json:"createdFromTaskId"`
	AssignedTo        json.RawMessage `json:"assignedTo"`
	Repeat            json.RawMessage `json:"repeat"`
}

// parseProposals decodes a JSON array of follow-up suggestions. One bad
// entry rejects the whole reply.
func parseProposals(reply string, loc *time.Location) ([]model.Suggestion, error) {
	arr, ok := extractJSON(reply, '[', ']')
	if !ok {
		return nil, apperr.New(apperr.KindParse, "no JSON array in reply")
	}
	var raws []rawProposal
	if err := json.Unmarshal([]byte(arr), &raws); err != nil {
		return nil, apperr.Wrap(apperr.KindParse, "decode suggestions", err)
	}

	out := make([]model.Suggestion, 0, len(raws))
	for i, r := range raws {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			return nil, apperr.New(apperr.KindParse, fmt.Sprintf("suggestion %d has no title", i))
		}
		date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(r.SuggestedDate), loc)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindParse, fmt.Sprintf("suggestion %d has invalid date", i), err)
		}
		out = append(out, model.Suggestion{
			Title:             title,
			Description:       strings.TrimSpace(r.Description),
			Category:          strings.TrimSpace(r.Category),
			Priority:          normalizePriority(r.Priority, model.PriorityLow),
			Repeat:            decodeRepeat(r.Repeat),
			AssignedTo:        assigneeRef(r.AssignedTo),
			SuggestedDate:     date,
			Reason:            strings.TrimSpace(r.Reason),
			CreatedFromTaskID: strings.TrimSpace(r.CreatedFromTaskID),
		})
	}
	return out, nil
}
