package model

import (
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

const (
	SuggestionPending  = "pending"
	SuggestionAccepted = "accepted"
	SuggestionIgnored  = "ignored"
)

// Suggestion is an assistant-proposed task awaiting accept or ignore.
type Suggestion struct {
	ID                string          `json:"id"`
	HouseholdID       string          `json:"household_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Priority          string          `json:"priority"`
	Repeat            recurrence.Rule `json:"repeat"`
	AssignedTo        string          `json:"assigned_to"`
	SuggestedDate     time.Time       `json:"suggested_date"`
	Reason            string          `json:"reason"`
	CreatedFromTaskID string          `json:"created_from_task_id"`
	Status            string          `json:"status"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
}
