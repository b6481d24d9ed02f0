package recovery

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// StepExecutor performs one remediation step against a card. Real deployments
// wire an executor that talks to the card; tests and demo mode use the
// simulated one.
type StepExecutor interface {
	Execute(ctx context.Context, cardID domain.CardID, step string) error
}

// Runner executes recovery recipes step by step, in declared order. Steps are
// causally dependent, so there is no reordering and no parallelism; the
// attempt terminates at the first fatally failed step.
type Runner struct {
	executor StepExecutor
}

// NewRunner creates a recipe runner backed by the given executor.
func NewRunner(executor StepExecutor) *Runner {
	return &Runner{executor: executor}
}

// Run looks up the recipe for the failure type and executes it. The returned
// attempt records one outcome per executed step. An error is returned only for
// invalid input; step failures are reported inside the attempt.
func (r *Runner) Run(ctx context.Context, cardID domain.CardID, ft domain.FailureType) (*domain.RecoveryAttempt, error) {
	recipe, err := RecipeFor(ft)
	if err != nil {
		return nil, err
	}

	attempt := &domain.RecoveryAttempt{
		ID:          uuid.New().String(),
		CardID:      cardID,
		FailureType: ft,
		StartedAt:   time.Now().UTC(),
	}

	for _, step := range recipe.Steps {
		if err := ctx.Err(); err != nil {
			attempt.FinishedAt = time.Now().UTC()
			return attempt, err
		}

		started := time.Now()
		stepErr := r.executor.Execute(ctx, cardID, step)

		result := domain.StepResult{
			Step:       step,
			OK:         stepErr == nil,
			Duration:   time.Since(started),
			FinishedAt: time.Now().UTC(),
		}
		if stepErr != nil {
			result.Error = stepErr.Error()
		}
		attempt.Steps = append(attempt.Steps, result)

		if stepErr != nil {
			// No partial resume: the caller re-invokes the whole recipe.
			attempt.Success = false
			attempt.FinishedAt = time.Now().UTC()
			return attempt, nil
		}
		attempt.LastCompletedStep = step
	}

	attempt.Success = true
	attempt.FinishedAt = time.Now().UTC()
	return attempt, nil
}

// StepFailureError reports a simulated step failure.
type StepFailureError struct {
	Step string
}

func (e *StepFailureError) Error() string {
	return "step failed: " + e.Step
}

// SimulatedExecutor rolls an independent failure probability per step.
type SimulatedExecutor struct {
	failureProbability float64
	stepDelay          time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedExecutor creates an executor that fails each step with the given
// probability. A zero seed selects a time-based one.
func NewSimulatedExecutor(failureProbability float64, stepDelay time.Duration, seed int64) *SimulatedExecutor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedExecutor{
		failureProbability: failureProbability,
		stepDelay:          stepDelay,
		rng:                rand.New(rand.NewSource(seed)),
	}
}

// Execute simulates running one step.
func (e *SimulatedExecutor) Execute(ctx context.Context, cardID domain.CardID, step string) error {
	if e.stepDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.stepDelay):
		}
	}

	e.mu.Lock()
	roll := e.rng.Float64()
	e.mu.Unlock()

	if roll < e.failureProbability {
		return &StepFailureError{Step: step}
	}
	return nil
}
