package domain

import "errors"

// FailureType is a closed set of failure categories. Every value maps to
// exactly one recovery recipe.
type FailureType string

const (
	FailureBootFailure         FailureType = "boot_failure"
	FailureDriverIssue         FailureType = "driver_issue"
	FailureHardwareFault       FailureType = "hardware_fault"
	FailureFirmwareCorruption  FailureType = "firmware_corruption"
	FailureNetworkConnectivity FailureType = "network_connectivity"
	FailureInterruptStorm      FailureType = "interrupt_storm"
	FailureCoreDump            FailureType = "core_dump"
	FailureMemoryLeak          FailureType = "memory_leak"
)

// FailureTypes lists the enumerated set in a stable order.
var FailureTypes = []FailureType{
	FailureBootFailure,
	FailureDriverIssue,
	FailureHardwareFault,
	FailureFirmwareCorruption,
	FailureNetworkConnectivity,
	FailureInterruptStorm,
	FailureCoreDump,
	FailureMemoryLeak,
}

// ErrUnknownFailureType signals an input outside the enumerated set. Fatal to
// the single call, never to the process.
var ErrUnknownFailureType = errors.New("unknown failure type")

// Severity labels how serious a failure category is.
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)
