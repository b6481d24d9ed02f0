package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// Injection scenario names. Each scenario fires independently per collection
// with its configured probability and mutates the card state accordingly.
const (
	ScenarioPowerFailure     = "power_failure"
	ScenarioTemperatureSpike = "temperature_spike"
	ScenarioMemoryCorruption = "memory_corruption"
	ScenarioNetworkTimeout   = "network_timeout"
	ScenarioChecksumMismatch = "checksum_mismatch"
)

// simState is the mutable per-card state the simulator evolves across
// collections.
type simState struct {
	model           string
	firmwareVersion string
	targetFirmware  string
	status          domain.FirmwareStatus

	temperature    float64
	powerWatts     float64
	linkUp         bool
	interruptCount int
	errorCount     int
}

// Simulator fabricates plausible card telemetry and injects failure scenarios.
// It stands in for a real card agent in demo and test deployments.
type Simulator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	injection map[string]float64
	cards     map[domain.CardID]*simState
	logger    *slog.Logger

	// installDelay is the pause between install progress milestones.
	installDelay time.Duration
}

// NewSimulator creates a simulator. A zero seed selects a time-based one,
// which is what daemons want; tests pass a fixed seed.
func NewSimulator(seed int64, injection map[string]float64, logger *slog.Logger) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		rng:          rand.New(rand.NewSource(seed)),
		injection:    injection,
		cards:        make(map[domain.CardID]*simState),
		logger:       logger.With("component", "simulator"),
		installDelay: 500 * time.Millisecond,
	}
}

// SetInstallDelay overrides the pause between install progress milestones.
func (s *Simulator) SetInstallDelay(d time.Duration) {
	s.installDelay = d
}

// Register adds a card to the simulated fleet with a healthy baseline.
func (s *Simulator) Register(card *domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cards[card.ID] = &simState{
		model:           card.Model,
		firmwareVersion: card.FirmwareVersion,
		targetFirmware:  card.TargetFirmware,
		status:          card.Status,
		temperature:     45.0,
		powerWatts:      25.5,
		linkUp:          true,
	}
}

// Collect fabricates a fresh snapshot for the card. Baseline metrics drift
// within normal operating ranges; injection scenarios occasionally push the
// card into a degraded state.
func (s *Simulator) Collect(ctx context.Context, cardID domain.CardID) (*domain.HealthSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.cards[cardID]
	if !ok {
		return nil, fmt.Errorf("simulator: card %s not registered", cardID)
	}

	st.temperature = s.uniform(40.0, 80.0)
	st.powerWatts = s.uniform(20.0, 35.0)
	st.interruptCount += s.intn(6)

	if scenario := s.rollScenario(); scenario != "" {
		s.applyScenario(cardID, st, scenario)
	}

	snap := &domain.HealthSnapshot{
		CardID:          cardID,
		Temperature:     st.temperature,
		PowerWatts:      st.powerWatts,
		LinkUp:          st.linkUp,
		InterruptCount:  st.interruptCount,
		ErrorCount:      st.errorCount,
		FirmwareVersion: st.firmwareVersion,
		FirmwareStatus:  st.status,
		CollectedAt:     time.Now().UTC(),
	}
	return snap, nil
}

// installMilestones are the progress percentages reported during a firmware
// install.
var installMilestones = []int{10, 25, 50, 75, 90, 100}

// Install walks a card through a firmware installation. Each progress
// milestone rolls the injection table; any triggered scenario aborts the
// install and leaves the card in the degraded state the scenario produced.
func (s *Simulator) Install(ctx context.Context, cardID domain.CardID) error {
	s.mu.Lock()
	st, ok := s.cards[cardID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("simulator: card %s not registered", cardID)
	}
	st.status = domain.FirmwareInstalling
	target := st.targetFirmware
	s.mu.Unlock()

	s.logger.Info("starting firmware installation", "card", cardID, "target", target)

	for _, progress := range installMilestones {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.installDelay):
		}

		s.logger.Info("installation progress", "card", cardID, "percent", progress)

		s.mu.Lock()
		scenario := s.rollScenario()
		if scenario != "" {
			s.applyScenario(cardID, st, scenario)
			s.mu.Unlock()
			return fmt.Errorf("installation failed on %s: %s at %d%%", cardID, scenario, progress)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	st.firmwareVersion = target
	st.status = domain.FirmwareInstalled
	s.mu.Unlock()

	s.logger.Info("firmware installation completed", "card", cardID, "version", target)
	return nil
}

// Reset returns a card to a clean baseline, the way a factory reset would.
func (s *Simulator) Reset(cardID domain.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.cards[cardID]
	if !ok {
		return fmt.Errorf("simulator: card %s not registered", cardID)
	}

	st.errorCount = 0
	st.interruptCount = 0
	st.temperature = s.uniform(40.0, 50.0)
	st.linkUp = true
	st.status = domain.FirmwareInstalled
	return nil
}

// rollScenario checks each injection scenario against its probability. Keys
// are walked in sorted order so a seeded run is reproducible. Caller holds the
// lock.
func (s *Simulator) rollScenario() string {
	if len(s.injection) == 0 {
		return ""
	}
	names := make([]string, 0, len(s.injection))
	for name := range s.injection {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if s.rng.Float64() < s.injection[name] {
			return name
		}
	}
	return ""
}

// applyScenario mutates card state for the triggered scenario. Caller holds
// the lock.
func (s *Simulator) applyScenario(cardID domain.CardID, st *simState, scenario string) {
	s.logger.Warn("failure scenario triggered", "card", cardID, "scenario", scenario)

	switch scenario {
	case ScenarioPowerFailure:
		st.status = domain.FirmwareFailed
		st.linkUp = false
	case ScenarioTemperatureSpike:
		st.temperature = s.uniform(85.0, 95.0)
	case ScenarioMemoryCorruption:
		st.status = domain.FirmwareCorrupted
		st.errorCount += 10 + s.intn(41)
	case ScenarioNetworkTimeout:
		st.linkUp = false
		st.interruptCount += 5 + s.intn(16)
	case ScenarioChecksumMismatch:
		st.status = domain.FirmwareFailed
	}
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Simulator) intn(n int) int {
	return s.rng.Intn(n)
}
