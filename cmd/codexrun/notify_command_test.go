package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codexrun/codexrun/internal/config"
	"github.com/codexrun/codexrun/internal/testutil"
)

// TestResolveWebhookURL verifies the destination precedence: flag, then
// environment, then settings.
func TestResolveWebhookURL(testingHandle *testing.T) {
	settings := &config.Settings{WebhookURL: "https://settings.example/hook"}

	cases := []struct {
		name      string
		flagValue string
		envValue  string
		settings  *config.Settings
		want      string
	}{
		{
			name:      "flag wins",
			flagValue: "https://flag.example/hook",
			envValue:  "https://env.example/hook",
			settings:  settings,
			want:      "https://flag.example/hook",
		},
		{
			name:     "environment beats settings",
			envValue: "https://env.example/hook",
			settings: settings,
			want:     "https://env.example/hook",
		},
		{
			name:     "settings as last resort",
			settings: settings,
			want:     "https://settings.example/hook",
		},
		{
			name: "nothing configured",
			want: "",
		},
	}

	for _, item := range cases {
		item := item
		testingHandle.Run(item.name, func(testingHandle *testing.T) {
			got := resolveWebhookURL(item.flagValue, item.envValue, item.settings)
			testutil.RequireEqual(testingHandle, got, item.want, "webhook url")
		})
	}
}

// TestRunNotifyRejectsUnknownEvent ensures the event type gate fires before
// any delivery attempt.
func TestRunNotifyRejectsUnknownEvent(testingHandle *testing.T) {
	var stdout, stderr bytes.Buffer

	code := runNotify(&stdout, &stderr, &notifyOptions{EventType: "weird"})

	testutil.RequireEqual(testingHandle, code, 1, "exit status")
	testutil.RequireStringContains(testingHandle, stderr.String(), `unknown event type "weird"`, "stderr")
}

// TestRunNotifyRequiresWebhook ensures a missing destination is an error.
func TestRunNotifyRequiresWebhook(testingHandle *testing.T) {
	// Isolate from the developer's settings file and environment.
	testingHandle.Setenv("HOME", testingHandle.TempDir())
	testingHandle.Setenv(envWebhookURL, "")

	var stdout, stderr bytes.Buffer

	code := runNotify(&stdout, &stderr, &notifyOptions{EventType: "stop"})

	testutil.RequireEqual(testingHandle, code, 1, "exit status")
	testutil.RequireStringContains(testingHandle, stderr.String(), "no webhook URL configured", "stderr")
}

// TestRunNotifyDelivers exercises the full path against a local webhook.
func TestRunNotifyDelivers(testingHandle *testing.T) {
	testingHandle.Setenv("HOME", testingHandle.TempDir())

	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		_ = json.Unmarshal(body, &received)
		responseWriter.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	opts := &notifyOptions{
		EventType:  "stop",
		WebhookURL: server.URL,
		Message:    "all done",
		Simple:     true,
	}

	code := runNotify(&stdout, &stderr, opts)

	testutil.RequireEqual(testingHandle, code, 0, "exit status")
	testutil.RequireEqual(testingHandle, stdout.String(), "OK: delivered stop event to webhook\n", "stdout")
	testutil.RequireEqual(testingHandle, stderr.String(), "", "stderr")
	if received == nil {
		testingHandle.Fatalf("expected the webhook to receive a payload")
	}
	testutil.RequireEqual(testingHandle, received["text"], "*✅ Task Completed*\nall done", "payload text")
	if _, ok := received["blocks"]; ok {
		testingHandle.Fatalf("simple notifications must not carry blocks, got %+v", received["blocks"])
	}
}

// TestRunNotifyReportsDeliveryFailure surfaces webhook rejections as an
// ERROR line and a non-zero status.
func TestRunNotifyReportsDeliveryFailure(testingHandle *testing.T) {
	testingHandle.Setenv("HOME", testingHandle.TempDir())

	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		http.Error(responseWriter, "rejected", http.StatusForbidden)
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	opts := &notifyOptions{
		EventType:  "notification",
		WebhookURL: server.URL,
		Message:    "attention",
		Simple:     true,
	}

	code := runNotify(&stdout, &stderr, opts)

	testutil.RequireEqual(testingHandle, code, 1, "exit status")
	testutil.RequireEqual(testingHandle, stdout.String(), "", "stdout")
	testutil.RequireStringContains(testingHandle, stderr.String(), "webhook delivery failed: status 403", "stderr")
}
