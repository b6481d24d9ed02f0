package domain

import "time"

// RecoveryRecipe is the fixed ordered remediation procedure for one failure
// category. Steps are causally dependent and must run in declared order.
type RecoveryRecipe struct {
	FailureType     FailureType `json:"failure_type"`
	Description     string      `json:"description"`
	Severity        Severity    `json:"severity"`
	Steps           []string    `json:"steps"`
	ExpectedOutcome string      `json:"expected_outcome"`
}

// StepResult records the outcome of a single executed recipe step.
type StepResult struct {
	Step       string        `json:"step"`
	OK         bool          `json:"ok"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RecoveryAttempt is the terminal record of running one recipe. It is created
// when recovery is invoked and never mutated once all steps ran or one failed
// fatally.
type RecoveryAttempt struct {
	ID                string       `json:"id"`
	CardID            CardID       `json:"card_id"`
	FailureType       FailureType  `json:"failure_type"`
	Steps             []StepResult `json:"steps"`
	Success           bool         `json:"success"`
	LastCompletedStep string       `json:"last_completed_step,omitempty"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
}

// PendingRecoveryStatus tracks a queued recovery through its lifecycle.
type PendingRecoveryStatus string

const (
	PendingRecoveryPending   PendingRecoveryStatus = "pending"
	PendingRecoveryResolved  PendingRecoveryStatus = "resolved"
	PendingRecoveryExhausted PendingRecoveryStatus = "exhausted"
)

// PendingRecovery is a queued request to run a recipe for a card.
type PendingRecovery struct {
	ID          string                `json:"id"`
	CardID      CardID                `json:"card_id"`
	FailureType FailureType           `json:"failure_type"`
	Reason      string                `json:"reason"`
	RetryCount  int                   `json:"retry_count"`
	Status      PendingRecoveryStatus `json:"status"`
	LastAttempt time.Time             `json:"last_attempt"`
	CreatedAt   time.Time             `json:"created_at"`
}
