package auth

import (
	"context"
	"testing"

	"github.com/01001010sedano/TidyTapv1/internal/model"
)

func TestWithSessionAndFromContext(t *testing.T) {
	s := Session{
		UserID:      "u1",
		Name:        "Maya",
		Role:        model.RoleManager,
		HouseholdID: "household_u1",
		SessionID:   3,
	}

	ctx := WithSession(context.Background(), s)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected Session in context")
	}
	if got != s {
		t.Errorf("session = %+v, want %+v", got, s)
	}
	if UserID(ctx) != "u1" || HouseholdID(ctx) != "household_u1" {
		t.Errorf("UserID/HouseholdID = %q/%q", UserID(ctx), HouseholdID(ctx))
	}
	if !IsManager(ctx) {
		t.Error("expected IsManager = true")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing session")
	}
	if UserID(context.Background()) != "" || HouseholdID(context.Background()) != "" {
		t.Error("expected empty ids for missing session")
	}
	if IsManager(context.Background()) {
		t.Error("expected IsManager = false for missing session")
	}
}

func TestIsManagerHelper(t *testing.T) {
	ctx := WithSession(context.Background(), Session{Role: model.RoleHelper})
	if IsManager(ctx) {
		t.Error("expected IsManager = false for helper")
	}
}

func TestViewer(t *testing.T) {
	v := Session{UserID: "u1", Role: model.RoleHelper, HouseholdID: "h"}.Viewer()
	if v.UserID != "u1" || v.Role != model.RoleHelper || v.HouseholdID != "h" {
		t.Errorf("viewer = %+v", v)
	}
}
