package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"corsair/internal/testsupport"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := NewService(cfg)
	if _, ok := service.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", service)
	}
	if err := service.NotifyRaidStarted(context.Background(), "Merchant Sloop", 2); err != nil {
		t.Fatalf("noop notify: %v", err)
	}
}

func TestNotifyRaidLifecycle(t *testing.T) {
	server, requests := newCaptureServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := NewService(cfg)
	ctx := context.Background()

	if err := service.NotifyRaidStarted(ctx, "Merchant Sloop", 3); err != nil {
		t.Fatalf("notify started: %v", err)
	}
	if err := service.NotifyRaidCompleted(ctx, "Merchant Sloop", 3, 900); err != nil {
		t.Fatalf("notify completed: %v", err)
	}
	if err := service.NotifyRaidFailed(ctx, "Merchant Sloop", "only 1 of 3 required crew joined"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	got := *requests
	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	if got[0].title != "Corsair - Raid Started" || got[0].tags != "corsair,raid,started" {
		t.Fatalf("unexpected start notification: %+v", got[0])
	}
	if got[1].body != "Raid on the Merchant Sloop succeeded: 3 crew shared 900 points" {
		t.Fatalf("unexpected completion body: %q", got[1].body)
	}
	if got[2].title != "Corsair - Raid Failed" {
		t.Fatalf("unexpected failure notification: %+v", got[2])
	}
}

func TestNotifyErrorSetsPriority(t *testing.T) {
	server, requests := newCaptureServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := NewService(cfg)

	if err := service.NotifyError(context.Background(), errors.New("ledger unreachable"), "raid recovery"); err != nil {
		t.Fatalf("notify error: %v", err)
	}

	got := *requests
	if len(got) != 1 {
		t.Fatalf("expected 1 request, got %d", len(got))
	}
	if got[0].priority != "high" {
		t.Fatalf("priority = %q, want high", got[0].priority)
	}
	if got[0].body != "Error with raid recovery: ledger unreachable" {
		t.Fatalf("body = %q", got[0].body)
	}
}

func TestRaidEventsGate(t *testing.T) {
	server, requests := newCaptureServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.Raids = false
	service := NewService(cfg)

	if err := service.NotifyRaidStarted(context.Background(), "Merchant Sloop", 2); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("gated raid event still sent: %+v", *requests)
	}
	// Test notifications bypass the gate.
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("test notification not sent")
	}
}

func TestSendReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := NewService(cfg)
	err := service.TestNotification(context.Background())
	if err == nil {
		t.Fatal("server error not surfaced")
	}
}
