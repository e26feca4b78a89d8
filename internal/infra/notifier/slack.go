package notifier

import (
	"context"
	"fmt"
	"time"

	"pptgen/internal/connectivity"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for one Slack API call
	Timeout time.Duration
}

// SlackNotifier sends connectivity notifications to Slack via Incoming Webhook.
type SlackNotifier struct {
	sender *webhookSender
}

// NewSlackNotifier creates a new SlackNotifier with the specified configuration.
//
// The notifier is initialized with:
//   - HTTP client with configured timeout
//   - Rate limiter set to 1 request/second with burst of 1
//     (Slack Webhook limit: 1 message per second)
func NewSlackNotifier(config SlackConfig, opts ...Option) *SlackNotifier {
	return &SlackNotifier{
		sender: newWebhookSender("Slack", config.WebhookURL, config.Timeout, NewRateLimiter(1.0, 1), opts),
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "header", "section", "context"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for header and section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxFallbackLength    = 150

	slackTruncationSuffix = "..."
)

// buildBlockKitPayload creates a Slack webhook payload from a connectivity event.
//
// The payload includes:
//   - Text: fallback text with the message and offline duration
//   - Header Block: issue title
//   - Section Block: event message
//   - Context Block: severity, offline duration and last successful check
func (s *SlackNotifier) buildBlockKitPayload(ev connectivity.Event) SlackWebhookPayload {
	offline := formatOffline(ev.Duration)

	fallback := truncate(fmt.Sprintf("%s (offline for %s)", ev.Message, offline), maxFallbackLength, slackTruncationSuffix)

	lastCheck := "never"
	if !ev.LastHealthCheck.IsZero() {
		lastCheck = ev.LastHealthCheck.UTC().Format(time.RFC3339)
	}
	contextText := fmt.Sprintf("severity: *%s* • offline for %s • last successful check %s", ev.Severity, offline, lastCheck)

	return SlackWebhookPayload{
		Text: fallback,
		Blocks: []SlackBlock{
			{
				Type: "header",
				Text: &SlackTextObject{Type: "plain_text", Text: issueTitle},
			},
			{
				Type: "section",
				Text: &SlackTextObject{
					Type: "mrkdwn",
					Text: truncate(ev.Message, maxSectionTextLength, slackTruncationSuffix),
				},
			},
			{
				Type:     "context",
				Elements: []SlackTextObject{{Type: "mrkdwn", Text: contextText}},
			},
		},
	}
}

// Name returns "slack".
func (s *SlackNotifier) Name() string {
	return "slack"
}

// NotifyConnectivityIssue posts the event to the Slack webhook.
func (s *SlackNotifier) NotifyConnectivityIssue(ctx context.Context, ev connectivity.Event) error {
	return s.sender.deliver(ctx, s.buildBlockKitPayload(ev))
}
