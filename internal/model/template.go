package model

import (
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/recurrence"
)

type TaskTemplate struct {
	ID               string          `json:"id"`
	HouseholdID      string          `json:"household_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Priority         string          `json:"priority"`
	EstimatedMinutes int             `json:"estimated_minutes"`
	Repeat           recurrence.Rule `json:"repeat"`
	Room             string          `json:"room"`
	Supplies         []string        `json:"supplies"`
	Steps            []string        `json:"steps"`
	IsDefault        bool            `json:"is_default"`
	UsageCount       int             `json:"usage_count"`
	LastUsed         *time.Time      `json:"last_used"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type TemplateCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}
