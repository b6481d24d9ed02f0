// Package report builds operator-facing diagnostic bundles.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
	"github.com/dpuwatch/dpuwatch/internal/infra/storage"
)

// TechSupport assembles diagnostic bundles from stored state.
type TechSupport struct {
	cards     storage.CardRepository
	snapshots storage.SnapshotRepository
	verdicts  storage.VerdictRepository
	attempts  storage.AttemptRepository
}

// NewTechSupport creates a bundle generator.
func NewTechSupport(
	cards storage.CardRepository,
	snapshots storage.SnapshotRepository,
	verdicts storage.VerdictRepository,
	attempts storage.AttemptRepository,
) *TechSupport {
	return &TechSupport{
		cards:     cards,
		snapshots: snapshots,
		verdicts:  verdicts,
		attempts:  attempts,
	}
}

// Generate renders the support bundle for one card as plain text.
func (t *TechSupport) Generate(ctx context.Context, cardID domain.CardID) (string, error) {
	card, err := t.cards.Get(ctx, cardID)
	if err != nil {
		return "", fmt.Errorf("failed to load card %s: %w", cardID, err)
	}

	snap, err := t.snapshots.GetLatest(ctx, cardID)
	if err != nil {
		return "", fmt.Errorf("failed to load snapshot: %w", err)
	}
	verdict, err := t.verdicts.GetLatest(ctx, cardID)
	if err != nil {
		return "", fmt.Errorf("failed to load verdict: %w", err)
	}
	attempts, err := t.attempts.GetRecent(ctx, cardID, 5)
	if err != nil {
		return "", fmt.Errorf("failed to load attempts: %w", err)
	}

	var b strings.Builder
	b.WriteString("=== DPU TECHNICAL SUPPORT BUNDLE ===\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Card ID: %s\n\n", cardID)

	b.WriteString("HARDWARE INFORMATION:\n")
	fmt.Fprintf(&b, "- Model: %s\n", card.Model)
	fmt.Fprintf(&b, "- Firmware Version: %s\n", card.FirmwareVersion)
	fmt.Fprintf(&b, "- Target Firmware: %s\n", card.TargetFirmware)
	fmt.Fprintf(&b, "- Status: %s\n\n", card.Status)

	if snap != nil {
		b.WriteString("CURRENT METRICS:\n")
		fmt.Fprintf(&b, "- Temperature: %.1f°C\n", snap.Temperature)
		fmt.Fprintf(&b, "- Power Consumption: %.1fW\n", snap.PowerWatts)
		fmt.Fprintf(&b, "- Link Status: %s\n", linkText(snap.LinkUp))
		fmt.Fprintf(&b, "- Interrupt Count: %d\n", snap.InterruptCount)
		fmt.Fprintf(&b, "- Error Count: %d\n", snap.ErrorCount)
		fmt.Fprintf(&b, "- Collected At: %s\n\n", snap.CollectedAt.Format(time.RFC3339))
	} else {
		b.WriteString("CURRENT METRICS:\n- No snapshots collected yet\n\n")
	}

	b.WriteString("ANOMALIES DETECTED:\n")
	if verdict != nil && len(verdict.Anomalies) > 0 {
		for _, a := range verdict.Anomalies {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	} else {
		b.WriteString("- None\n")
	}
	b.WriteString("\n")

	b.WriteString("RECENT RECOVERY ATTEMPTS:\n")
	if len(attempts) > 0 {
		for _, a := range attempts {
			outcome := "succeeded"
			if !a.Success {
				outcome = fmt.Sprintf("failed after %q", a.LastCompletedStep)
			}
			fmt.Fprintf(&b, "- %s: %s (%s, %d steps)\n",
				a.FinishedAt.Format(time.RFC3339), a.FailureType, outcome, len(a.Steps))
		}
	} else {
		b.WriteString("- None\n")
	}
	b.WriteString("\n")

	b.WriteString("DIAGNOSTIC COMMANDS:\n")
	b.WriteString("- lspci | grep Pensando\n")
	b.WriteString("- dmesg | grep -i pensando\n")
	b.WriteString("- ethtool -i eth0\n")
	b.WriteString("- cat /proc/interrupts | grep pensando\n\n")

	b.WriteString("RECOMMENDED ACTIONS:\n")
	actions := recommendedActions(card, snap)
	if len(actions) == 0 {
		b.WriteString("- None\n")
	}
	for _, action := range actions {
		fmt.Fprintf(&b, "- %s\n", action)
	}
	b.WriteString("\n=== END TECHNICAL SUPPORT BUNDLE ===\n")

	return b.String(), nil
}

func recommendedActions(card *domain.Card, snap *domain.HealthSnapshot) []string {
	var actions []string
	if card.Status == domain.FirmwareFailed || card.Status == domain.FirmwareCorrupted {
		actions = append(actions, "Consider firmware recovery")
	}
	if snap == nil {
		return actions
	}
	if snap.Temperature > 80 {
		actions = append(actions, "Check cooling system")
	}
	if !snap.LinkUp {
		actions = append(actions, "Investigate network connectivity")
	}
	if snap.ErrorCount > 10 {
		actions = append(actions, "Monitor error patterns")
	}
	return actions
}

func linkText(up bool) string {
	if up {
		return "UP"
	}
	return "DOWN"
}
