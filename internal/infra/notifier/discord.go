package notifier

import (
	"context"
	"time"

	"pptgen/internal/connectivity"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for one Discord API call
	Timeout time.Duration
}

// DiscordNotifier sends connectivity notifications to Discord via webhook.
type DiscordNotifier struct {
	sender *webhookSender
}

// NewDiscordNotifier creates a new DiscordNotifier with the specified configuration.
//
// The notifier is initialized with:
//   - HTTP client with configured timeout
//   - Rate limiter set to 0.5 requests/second with burst of 3
//     (Discord Webhook limit: 30 requests per minute = 0.5 req/s)
func NewDiscordNotifier(config DiscordConfig, opts ...Option) *DiscordNotifier {
	return &DiscordNotifier{
		sender: newWebhookSender("Discord", config.WebhookURL, config.Timeout, NewRateLimiter(0.5, 3), opts),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      DiscordEmbedFooter  `json:"footer"`
	Timestamp   string              `json:"timestamp"`
}

// DiscordEmbedField represents one inline name/value pair of an embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	// Discord limits
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	truncationSuffix     = "..."

	// Discord red (#ED4245)
	discordRedColor = 15548997

	discordFooter = "pptgen connectivity monitor"
)

// buildEmbedPayload creates a Discord webhook payload from a connectivity event.
//
// The payload includes:
//   - Title: fixed issue title
//   - Description: event message (truncated to 4096 chars if needed)
//   - Fields: severity, offline duration and last successful check
//   - Color: Discord red
//   - Timestamp: last successful check in RFC3339 format
func (d *DiscordNotifier) buildEmbedPayload(ev connectivity.Event) DiscordWebhookPayload {
	lastCheck := "never"
	if !ev.LastHealthCheck.IsZero() {
		lastCheck = ev.LastHealthCheck.UTC().Format(time.RFC3339)
	}

	embed := DiscordEmbed{
		Title:       truncate(issueTitle, maxTitleLength, truncationSuffix),
		Description: truncate(ev.Message, maxDescriptionLength, truncationSuffix),
		Color:       discordRedColor,
		Fields: []DiscordEmbedField{
			{Name: "Severity", Value: ev.Severity, Inline: true},
			{Name: "Offline for", Value: formatOffline(ev.Duration), Inline: true},
			{Name: "Last successful check", Value: lastCheck, Inline: false},
		},
		Footer:    DiscordEmbedFooter{Text: discordFooter},
		Timestamp: ev.LastHealthCheck.Add(ev.Duration).UTC().Format(time.RFC3339),
	}

	return DiscordWebhookPayload{
		Embeds: []DiscordEmbed{embed},
	}
}

// Name returns "discord".
func (d *DiscordNotifier) Name() string {
	return "discord"
}

// NotifyConnectivityIssue posts the event to the Discord webhook.
func (d *DiscordNotifier) NotifyConnectivityIssue(ctx context.Context, ev connectivity.Event) error {
	return d.sender.deliver(ctx, d.buildEmbedPayload(ev))
}
