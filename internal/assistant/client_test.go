package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/01001010sedano/TidyTapv1/internal/apperr"
)

func TestCompleteSendsRequest(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hi there 🦐 "}}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", time.Second, WithBaseURL(srv.URL+"/"), WithModel("test-model"))
	reply, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hello"}}, 50)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "hi there 🦐" {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "test-model" || got.MaxTokens != 50 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", time.Second, WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), nil, 0)
	if !apperr.Is(err, apperr.KindExternal) {
		t.Fatalf("err = %v, want external", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", time.Second, WithBaseURL(srv.URL))
	if _, err := c.Complete(context.Background(), nil, 0); !apperr.Is(err, apperr.KindExternal) {
		t.Fatalf("err = %v, want external", err)
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	c := NewClient("", 0)
	if c.Configured() {
		t.Fatal("expected client without key to be unconfigured")
	}
	if _, err := c.Complete(context.Background(), nil, 0); !apperr.Is(err, apperr.KindExternal) {
		t.Fatalf("err = %v, want external", err)
	}
}
