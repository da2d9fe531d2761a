package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe(1)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestEventsReachOnlyTheOwner(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	alice := b.Subscribe(1)
	defer b.Unsubscribe(alice)
	bob := b.Subscribe(2)
	defer b.Unsubscribe(bob)

	b.MapChanged(1, "map.created", 42, "Plans")

	select {
	case msg := <-alice:
		s := string(msg)
		if !strings.Contains(s, "event: map.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":42`) || !strings.Contains(s, `"title":"Plans"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	// Round-trip through the loop so the publish has been fully handled.
	b.ClientCount()
	select {
	case msg := <-bob:
		t.Fatalf("other user received %q", msg)
	default:
	}
}

func TestDeletedEventOmitsTitle(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe(7)
	defer b.Unsubscribe(ch)

	b.MapChanged(7, "map.deleted", 3, "")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: map.deleted") || strings.Contains(s, "title") {
			t.Errorf("unexpected message %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

type flushRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResponseRecorder.Write(p)
}

func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Body.String()
}

func TestStream(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.Stream(w, req, 5)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.MapChanged(5, "map.updated", 9, "Renamed")
	b.MapChanged(6, "map.updated", 10, "Someone else")

	deadline = time.Now().Add(time.Second)
	for !strings.Contains(w.body(), "event: map.updated") {
		if time.Now().After(deadline) {
			t.Fatalf("handler output missing event: %q", w.body())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done

	if strings.Contains(w.body(), "Someone else") {
		t.Errorf("stream leaked another user's event: %q", w.body())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe(1)
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.MapChanged(1, "map.updated", int64(i), "x")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(1)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// No-ops after close.
	b.MapChanged(1, "map.updated", 1, "x")
	closed := b.Subscribe(1)
	if _, ok := <-closed; ok {
		t.Fatal("subscribe after close must return a closed channel")
	}
}
