package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string, households ...string) *Client {
	return NewClient(hub, nil, userID, households)
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got, true
	case <-time.After(50 * time.Millisecond):
		return Message{}, false
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := testHub()

	c1 := mockClient(hub, "u1", "h1")
	c2 := mockClient(hub, "u2", "h1")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	// Should not panic
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastScopedToHousehold(t *testing.T) {
	hub := testHub()

	manager := mockClient(hub, "mgr", "h1")
	helper := mockClient(hub, "ana", "h1", "h2")
	outsider := mockClient(hub, "zed", "h3")
	for _, c := range []*Client{manager, helper, outsider} {
		hub.Register(c)
	}

	hub.Broadcast(NewMessage("h1", "task", "created", "t1"))

	for _, c := range []*Client{manager, helper} {
		got, ok := receive(t, c)
		if !ok {
			t.Fatalf("%s: timeout waiting for message", c.userID)
		}
		if got.Type != "task_created" || got.ID != "t1" || got.HouseholdID != "h1" {
			t.Errorf("%s: message = %+v", c.userID, got)
		}
	}
	if _, ok := receive(t, outsider); ok {
		t.Error("client of another household received the message")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := testHub()
	c := mockClient(hub, "ana")
	hub.Register(c)

	hub.Broadcast(NewMessage("h1", "member", "joined", "ana"))
	if _, ok := receive(t, c); ok {
		t.Fatal("received message before subscribing")
	}

	hub.Subscribe("ana", "h1")
	hub.Broadcast(NewMessage("h1", "member", "joined", "ana"))
	if _, ok := receive(t, c); !ok {
		t.Fatal("no message after subscribing")
	}

	hub.Unsubscribe("ana", "h1")
	hub.Broadcast(NewMessage("h1", "task", "updated", "t1"))
	if _, ok := receive(t, c); ok {
		t.Fatal("received message after unsubscribing")
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := testHub()

	c := mockClient(hub, "u1", "h1")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("h1", "task", "updated", "fill"))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("h1", "task", "updated", "dropped"))

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("h1", "suggestion", "accepted", "s5")
	if msg.Type != "suggestion_accepted" || msg.Entity != "suggestion" || msg.Action != "accepted" {
		t.Errorf("message = %+v", msg)
	}
	if msg.ID != "s5" || msg.HouseholdID != "h1" {
		t.Errorf("message = %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := testHub()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "u", "h1")
			hub.Register(c)
			hub.Broadcast(NewMessage("h1", "task", "updated", ""))
			hub.Subscribe("u", "h2")
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
