package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// =============================================================================
// Scripted Executor
// =============================================================================

// scriptedExecutor fails at a fixed step index and records the order of
// executed steps.
type scriptedExecutor struct {
	failAt   int // -1 never fails
	executed []string
}

func (e *scriptedExecutor) Execute(ctx context.Context, cardID domain.CardID, step string) error {
	idx := len(e.executed)
	e.executed = append(e.executed, step)
	if e.failAt >= 0 && idx == e.failAt {
		return errors.New("boom")
	}
	return nil
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestRunner_Run_Success(t *testing.T) {
	exec := &scriptedExecutor{failAt: -1}
	runner := NewRunner(exec)

	attempt, err := runner.Run(context.Background(), "dpu-01", domain.FailureBootFailure)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	recipe, _ := RecipeFor(domain.FailureBootFailure)
	if !attempt.Success {
		t.Error("expected attempt to succeed")
	}
	if len(attempt.Steps) != len(recipe.Steps) {
		t.Fatalf("expected %d step results, got %d", len(recipe.Steps), len(attempt.Steps))
	}
	for i, res := range attempt.Steps {
		if res.Step != recipe.Steps[i] {
			t.Errorf("step %d = %q, want %q", i, res.Step, recipe.Steps[i])
		}
		if !res.OK {
			t.Errorf("step %d marked failed", i)
		}
	}
	if attempt.LastCompletedStep != recipe.Steps[len(recipe.Steps)-1] {
		t.Errorf("LastCompletedStep = %q, want last recipe step", attempt.LastCompletedStep)
	}
	if attempt.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}

func TestRunner_Run_StopsAtFirstFailure(t *testing.T) {
	exec := &scriptedExecutor{failAt: 1}
	runner := NewRunner(exec)

	attempt, err := runner.Run(context.Background(), "dpu-01", domain.FailureBootFailure)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	recipe, _ := RecipeFor(domain.FailureBootFailure)
	if attempt.Success {
		t.Error("expected attempt to fail")
	}
	// Steps 0 and 1 executed, 2 and 3 never reached.
	if len(exec.executed) != 2 {
		t.Fatalf("expected 2 executed steps, got %d", len(exec.executed))
	}
	if len(attempt.Steps) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(attempt.Steps))
	}
	if !attempt.Steps[0].OK {
		t.Error("first step should be OK")
	}
	if attempt.Steps[1].OK {
		t.Error("second step should be failed")
	}
	if attempt.Steps[1].Error == "" {
		t.Error("failed step should carry an error message")
	}
	if attempt.LastCompletedStep != recipe.Steps[0] {
		t.Errorf("LastCompletedStep = %q, want %q", attempt.LastCompletedStep, recipe.Steps[0])
	}
}

func TestRunner_Run_FailureAtFirstStep(t *testing.T) {
	exec := &scriptedExecutor{failAt: 0}
	runner := NewRunner(exec)

	attempt, err := runner.Run(context.Background(), "dpu-01", domain.FailureMemoryLeak)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if attempt.Success {
		t.Error("expected attempt to fail")
	}
	if attempt.LastCompletedStep != "" {
		t.Errorf("LastCompletedStep = %q, want empty", attempt.LastCompletedStep)
	}
}

func TestRunner_Run_UnknownType(t *testing.T) {
	runner := NewRunner(&scriptedExecutor{failAt: -1})

	attempt, err := runner.Run(context.Background(), "dpu-01", domain.FailureType("gremlins"))
	if err == nil {
		t.Fatal("expected error for unknown failure type")
	}
	if !errors.Is(err, domain.ErrUnknownFailureType) {
		t.Errorf("expected ErrUnknownFailureType, got %v", err)
	}
	if attempt != nil {
		t.Error("no attempt should be recorded for invalid input")
	}
}

func TestRunner_Run_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(&scriptedExecutor{failAt: -1})
	attempt, err := runner.Run(ctx, "dpu-01", domain.FailureBootFailure)
	if err == nil {
		t.Fatal("expected context error")
	}
	if attempt == nil {
		t.Fatal("expected partial attempt record")
	}
	if len(attempt.Steps) != 0 {
		t.Errorf("expected no steps executed, got %d", len(attempt.Steps))
	}
}

// =============================================================================
// Simulated Executor Tests
// =============================================================================

func TestSimulatedExecutor_Deterministic(t *testing.T) {
	// Probability 0: never fails.
	exec := NewSimulatedExecutor(0, 0, 42)
	for i := 0; i < 50; i++ {
		if err := exec.Execute(context.Background(), "dpu-01", "step"); err != nil {
			t.Fatalf("probability 0 should never fail, got %v", err)
		}
	}

	// Probability 1: always fails with a StepFailureError.
	exec = NewSimulatedExecutor(1, 0, 42)
	err := exec.Execute(context.Background(), "dpu-01", "Reload firmware from backup")
	if err == nil {
		t.Fatal("probability 1 should always fail")
	}
	var stepErr *StepFailureError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepFailureError, got %T", err)
	}
	if stepErr.Step != "Reload firmware from backup" {
		t.Errorf("error step = %q", stepErr.Step)
	}
}
