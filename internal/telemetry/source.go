// Package telemetry provides health snapshot sources for monitored cards.
package telemetry

import (
	"context"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// Source collects a health snapshot from one card. Implementations translate
// transport failures into errors; the caller decides how an unreachable card
// is represented.
type Source interface {
	Collect(ctx context.Context, cardID domain.CardID) (*domain.HealthSnapshot, error)
}
