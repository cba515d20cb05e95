package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"greenlight/internal/config"
	"greenlight/internal/notifications"
)

func newNtfyService(t *testing.T, handler http.HandlerFunc) notifications.Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	score := 90
	publish := true
	if err := svc.NotifyExecutionCompleted(context.Background(), "BRF-1", &publish, &score); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyExecutionCompletedFormatsDecision(t *testing.T) {
	var gotTitle, gotBody, gotPriority string
	svc := newNtfyService(t, func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	blocked := false
	score := 45
	if err := svc.NotifyExecutionCompleted(context.Background(), "BRF-2", &blocked, &score); err != nil {
		t.Fatalf("NotifyExecutionCompleted: %v", err)
	}
	if gotTitle != "Greenlight - Execution Complete" {
		t.Fatalf("unexpected title: %q", gotTitle)
	}
	if gotBody != "Execution complete: BRF-2 (blocked by gates), score 45" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
	if gotPriority != "high" {
		t.Fatalf("blocked decision should be high priority, got %q", gotPriority)
	}
}

func TestNotifyExecutionCompletedDeferredDecision(t *testing.T) {
	var gotBody string
	svc := newNtfyService(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.NotifyExecutionCompleted(context.Background(), "BRF-3", nil, nil); err != nil {
		t.Fatalf("NotifyExecutionCompleted: %v", err)
	}
	if gotBody != "Execution complete: BRF-3 (decision deferred)" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestNotifyDerivativesCreated(t *testing.T) {
	var gotBody string
	svc := newNtfyService(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.NotifyDerivativesCreated(context.Background(), "BRF-4", 10, 2); err != nil {
		t.Fatalf("NotifyDerivativesCreated: %v", err)
	}
	if gotBody != "Derivative batch for BRF-4: 10 created, 2 skipped" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestDisabledCategoriesAreSilent(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Executions = false
	cfg.Notifications.Derivatives = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyExecutionFailed(ctx, "BRF-5", "boom"); err != nil {
		t.Fatalf("NotifyExecutionFailed: %v", err)
	}
	if err := svc.NotifyDerivativesCreated(ctx, "BRF-5", 1, 0); err != nil {
		t.Fatalf("NotifyDerivativesCreated: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "worker"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if calls != 0 {
		t.Fatalf("disabled categories must not send, got %d calls", calls)
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	svc := newNtfyService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	})

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
