package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifier_buildBlockKitPayload(t *testing.T) {
	notifier := NewSlackNotifier(SlackConfig{WebhookURL: "https://hooks.slack.com/services/T/B/X"})

	payload := notifier.buildBlockKitPayload(testEvent())

	require.Len(t, payload.Blocks, 3)
	assert.Equal(t, "header", payload.Blocks[0].Type)
	assert.Equal(t, issueTitle, payload.Blocks[0].Text.Text)
	assert.Equal(t, "section", payload.Blocks[1].Type)
	assert.Equal(t, testEvent().Message, payload.Blocks[1].Text.Text)
	assert.Equal(t, "context", payload.Blocks[2].Type)
	assert.Contains(t, payload.Blocks[2].Elements[0].Text, "offline for 5m30s")
	assert.Contains(t, payload.Blocks[2].Elements[0].Text, "2026-03-01T12:00:00Z")
	assert.LessOrEqual(t, len(payload.Text), maxFallbackLength)
	assert.True(t, strings.HasPrefix(payload.Text, testEvent().Message))
	assert.Contains(t, payload.Text, "5m30s")
}

func TestSlackNotifier_NotifyConnectivityIssue(t *testing.T) {
	var received SlackWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	notifier := NewSlackNotifier(SlackConfig{Enabled: true, WebhookURL: server.URL, Timeout: time.Second},
		WithLogger(quietLogger()))

	err := notifier.NotifyConnectivityIssue(context.Background(), testEvent())

	require.NoError(t, err)
	assert.NotEmpty(t, received.Text)
	assert.Len(t, received.Blocks, 3)
}

func TestSlackNotifier_RetryAfterHeader(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	notifier := NewSlackNotifier(SlackConfig{WebhookURL: server.URL, Timeout: time.Second},
		WithLogger(quietLogger()), WithSleeper(sleeper.sleep))

	require.NoError(t, notifier.NotifyConnectivityIssue(context.Background(), testEvent()))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.recorded(), "retry-after replaces the backoff")
}

func TestSlackNotifier_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal_error"))
	}))
	defer server.Close()

	notifier := NewSlackNotifier(SlackConfig{WebhookURL: server.URL, Timeout: time.Second},
		WithLogger(quietLogger()), WithSleeper((&recordingSleeper{}).sleep))

	err := notifier.NotifyConnectivityIssue(context.Background(), testEvent())

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSlackNotifier_Name(t *testing.T) {
	assert.Equal(t, "slack", NewSlackNotifier(SlackConfig{}).Name())
}
