package model

import "time"

type Household struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ManagerID  string    `json:"manager_id"`
	InviteCode string    `json:"invite_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Member is a resolved member profile of a household.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type HouseholdDetail struct {
	Household
	Members []Member `json:"members"`
}

// HouseholdSummary is one entry of a user's household list.
type HouseholdSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code"`
	Manager    Member `json:"manager"`
}

// Lookup is the answer to an invite code lookup. Found is false when no
// household carries the code.
type Lookup struct {
	Found         bool   `json:"found"`
	HouseholdID   string `json:"household_id,omitempty"`
	HouseholdName string `json:"household_name,omitempty"`
}

// Created is returned by household creation.
type Created struct {
	HouseholdID string `json:"household_id"`
	InviteCode  string `json:"invite_code"`
}
