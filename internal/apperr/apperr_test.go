package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("leave household: %w", NotFound("User not found"))
	if !Is(err, KindNotFound) {
		t.Error("expected not_found kind through fmt wrapping")
	}
	if Is(err, KindForbidden) {
		t.Error("unexpected forbidden kind")
	}
}

func TestErrorString(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindTransaction, "could not save", cause)
	if got := err.Error(); got != "could not save: disk full" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Invalid("bad"), http.StatusBadRequest},
		{New(KindParse, "bad json"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{Forbidden("no"), http.StatusForbidden},
		{Conflict("dup"), http.StatusConflict},
		{Wrap(KindExternal, "llm down", errors.New("503")), http.StatusBadGateway},
		{Wrap(KindTransaction, "tx", errors.New("x")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMessageFallback(t *testing.T) {
	if got := Message(errors.New("raw"), "Something went wrong"); got != "Something went wrong" {
		t.Errorf("Message = %q", got)
	}
	if got := Message(Forbidden("Only managers can do that"), "x"); got != "Only managers can do that" {
		t.Errorf("Message = %q", got)
	}
}
