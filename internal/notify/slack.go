// Package notify delivers critical-verdict alerts to operators.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// CooldownStore coordinates alert cooldowns across processes. Acquire returns
// true when the caller holds the cooldown and may send.
type CooldownStore interface {
	AcquireCooldown(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// SlackNotifier sends card alerts to a Slack webhook. Repeated alerts for the
// same card are suppressed for the cooldown period, through the shared store
// when one is set and an in-process map otherwise.
type SlackNotifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client

	cooldown   time.Duration
	store      CooldownStore
	seenMutex  sync.Mutex
	seenAlerts map[domain.CardID]time.Time
}

// SlackMessage represents a Slack message
type SlackMessage struct {
	Channel     string       `json:"channel,omitempty"`
	Text        string       `json:"text,omitempty"`
	Username    string       `json:"username,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a Slack message attachment
type Attachment struct {
	Fallback  string  `json:"fallback,omitempty"`
	Color     string  `json:"color,omitempty"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
	Footer    string  `json:"footer,omitempty"`
	Timestamp int64   `json:"ts,omitempty"`
}

// Field represents a field in a Slack attachment
type Field struct {
	Title string `json:"title,omitempty"`
	Value string `json:"value,omitempty"`
	Short bool   `json:"short,omitempty"`
}

// NewSlackNotifier creates a new Slack notifier.
func NewSlackNotifier(webhookURL, channel string, cooldown time.Duration) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL cannot be empty")
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}

	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		cooldown:   cooldown,
		seenAlerts: make(map[domain.CardID]time.Time),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// SetCooldownStore shares the cooldown across service replicas.
func (s *SlackNotifier) SetCooldownStore(store CooldownStore) {
	s.store = store
}

// NotifyCritical sends an alert for a card that went critical. Returns nil
// without sending when the card is still in its cooldown window.
func (s *SlackNotifier) NotifyCritical(ctx context.Context, snap domain.HealthSnapshot, verdict domain.HealthVerdict) error {
	if !s.acquire(ctx, verdict.CardID) {
		return nil
	}

	anomalies := make([]string, 0, len(verdict.Anomalies))
	for _, a := range verdict.Anomalies {
		anomalies = append(anomalies, string(a))
	}

	attachment := Attachment{
		Fallback:  fmt.Sprintf("DPU %s is CRITICAL", verdict.CardID),
		Color:     "#FF0000",
		Title:     fmt.Sprintf("DPU %s is CRITICAL", verdict.CardID),
		Text:      "Anomalies: " + strings.Join(anomalies, ", "),
		Timestamp: verdict.EvaluatedAt.Unix(),
		Fields: []Field{
			{
				Title: "Temperature",
				Value: fmt.Sprintf("%.1f°C", snap.Temperature),
				Short: true,
			},
			{
				Title: "Power",
				Value: fmt.Sprintf("%.1f W", snap.PowerWatts),
				Short: true,
			},
			{
				Title: "Link",
				Value: linkText(snap.LinkUp),
				Short: true,
			},
			{
				Title: "Errors",
				Value: fmt.Sprintf("%d", snap.ErrorCount),
				Short: true,
			},
			{
				Title: "Firmware",
				Value: fmt.Sprintf("%s (%s)", snap.FirmwareVersion, snap.FirmwareStatus),
				Short: false,
			},
		},
		Footer: "DPU Fleet Monitor",
	}

	msg := SlackMessage{
		Channel:     s.channel,
		Username:    "DPU Fleet Monitor",
		IconEmoji:   ":rotating_light:",
		Attachments: []Attachment{attachment},
	}

	return s.sendMessage(ctx, msg)
}

// NotifyRecovery reports the outcome of a recovery attempt.
func (s *SlackNotifier) NotifyRecovery(ctx context.Context, attempt *domain.RecoveryAttempt) error {
	color := "#36A64F"
	outcome := "succeeded"
	if !attempt.Success {
		color = "#FFA500"
		outcome = "failed"
	}

	msg := SlackMessage{
		Channel:   s.channel,
		Username:  "DPU Fleet Monitor",
		IconEmoji: ":wrench:",
		Attachments: []Attachment{{
			Fallback:  fmt.Sprintf("Recovery %s on %s", outcome, attempt.CardID),
			Color:     color,
			Title:     fmt.Sprintf("Recovery %s on %s", outcome, attempt.CardID),
			Text:      fmt.Sprintf("Failure type: %s, steps executed: %d", attempt.FailureType, len(attempt.Steps)),
			Timestamp: attempt.FinishedAt.Unix(),
		}},
	}

	return s.sendMessage(ctx, msg)
}

// acquire checks and records the per-card cooldown. A failing shared store
// falls back to the local map so alerts are not lost during a Redis outage.
func (s *SlackNotifier) acquire(ctx context.Context, cardID domain.CardID) bool {
	if s.store != nil {
		ok, err := s.store.AcquireCooldown(ctx, "slack:"+string(cardID), s.cooldown)
		if err == nil {
			return ok
		}
	}

	s.seenMutex.Lock()
	defer s.seenMutex.Unlock()

	if last, ok := s.seenAlerts[cardID]; ok && time.Since(last) < s.cooldown {
		return false
	}
	s.seenAlerts[cardID] = time.Now()
	return true
}

func linkText(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

// sendMessage posts a message to the webhook.
func (s *SlackNotifier) sendMessage(ctx context.Context, message SlackMessage) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error marshaling Slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request to Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status: %s", resp.Status)
	}

	return nil
}
