package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// agentSnapshot is the wire format the on-card agent serves at /telemetry.
type agentSnapshot struct {
	Temperature     float64 `json:"temperature"`
	PowerWatts      float64 `json:"power_consumption"`
	LinkUp          bool    `json:"link_status"`
	InterruptCount  int     `json:"interrupt_count"`
	ErrorCount      int     `json:"error_count"`
	FirmwareVersion string  `json:"firmware_version"`
	FirmwareStatus  string  `json:"firmware_status"`
}

// AgentSource polls a card's HTTP telemetry agent. Transient HTTP failures are
// retried with exponential backoff before the card is reported unreachable.
type AgentSource struct {
	url     string
	client  *http.Client
	retries uint64
}

// NewAgentSource creates a source for the agent at the given base URL.
func NewAgentSource(url string) *AgentSource {
	return &AgentSource{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: 3,
	}
}

// Collect fetches one snapshot from the agent.
func (a *AgentSource) Collect(ctx context.Context, cardID domain.CardID) (*domain.HealthSnapshot, error) {
	var payload agentSnapshot

	backoff := retry.WithMaxRetries(a.retries, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url+"/telemetry", nil)
		if err != nil {
			return err
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("agent returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("agent returned %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&payload)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect from agent %s: %w", a.url, err)
	}

	snap := &domain.HealthSnapshot{
		CardID:          cardID,
		Temperature:     payload.Temperature,
		PowerWatts:      payload.PowerWatts,
		LinkUp:          payload.LinkUp,
		InterruptCount:  payload.InterruptCount,
		ErrorCount:      payload.ErrorCount,
		FirmwareVersion: payload.FirmwareVersion,
		FirmwareStatus:  domain.FirmwareStatus(payload.FirmwareStatus),
		CollectedAt:     time.Now().UTC(),
	}
	if err := domain.ValidateSnapshot(*snap); err != nil {
		return nil, fmt.Errorf("agent %s served invalid snapshot: %w", a.url, err)
	}
	return snap, nil
}
