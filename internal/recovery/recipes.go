// Package recovery maps failure categories to fixed remediation recipes and
// executes them.
package recovery

import (
	"fmt"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// recipes is the total mapping from failure type to recovery recipe. The table
// is built once and never changes at runtime.
var recipes = map[domain.FailureType]domain.RecoveryRecipe{
	domain.FailureBootFailure: {
		FailureType: domain.FailureBootFailure,
		Description: "card fails to boot after firmware installation",
		Severity:    domain.SeverityCritical,
		Steps: []string{
			"Reset card to factory defaults",
			"Reload firmware from backup",
			"Restart system services",
			"Verify basic connectivity",
		},
		ExpectedOutcome: "card boots on the backup firmware image",
	},
	domain.FailureDriverIssue: {
		FailureType: domain.FailureDriverIssue,
		Description: "driver compatibility issues after firmware update",
		Severity:    domain.SeverityHigh,
		Steps: []string{
			"Unload card driver modules",
			"Reload driver modules",
			"Restart network services",
			"Verify driver functionality",
		},
		ExpectedOutcome: "driver binds cleanly to the updated firmware",
	},
	domain.FailureHardwareFault: {
		FailureType: domain.FailureHardwareFault,
		Description: "hardware fault detected during or after installation",
		Severity:    domain.SeverityCritical,
		Steps: []string{
			"Run hardware diagnostics",
			"Reset hardware components",
			"Check physical connections",
			"Escalate to hardware team if needed",
		},
		ExpectedOutcome: "diagnostics pass or the card is flagged for replacement",
	},
	domain.FailureFirmwareCorruption: {
		FailureType: domain.FailureFirmwareCorruption,
		Description: "firmware image corruption detected",
		Severity:    domain.SeverityHigh,
		Steps: []string{
			"Stop all card services",
			"Flash firmware from backup",
			"Verify firmware integrity",
			"Restart card services",
		},
		ExpectedOutcome: "checksum of the running image matches the backup",
	},
	domain.FailureNetworkConnectivity: {
		FailureType: domain.FailureNetworkConnectivity,
		Description: "network connectivity lost after firmware update",
		Severity:    domain.SeverityMedium,
		Steps: []string{
			"Reset network interface",
			"Reload network configuration",
			"Restart network services",
			"Test connectivity",
		},
		ExpectedOutcome: "link returns to up and passes a ping test",
	},
	domain.FailureInterruptStorm: {
		FailureType: domain.FailureInterruptStorm,
		Description: "excessive interrupts detected",
		Severity:    domain.SeverityHigh,
		Steps: []string{
			"Disable interrupts temporarily",
			"Reset interrupt affinity",
			"Restart driver",
			"Re-enable interrupts",
		},
		ExpectedOutcome: "interrupt rate drops back under the threshold",
	},
	domain.FailureCoreDump: {
		FailureType: domain.FailureCoreDump,
		Description: "core dump detected in system logs",
		Severity:    domain.SeverityHigh,
		Steps: []string{
			"Analyze core dump",
			"Restart affected services",
			"Apply patches if available",
			"Monitor for recurrence",
		},
		ExpectedOutcome: "affected services stay up after restart",
	},
	domain.FailureMemoryLeak: {
		FailureType: domain.FailureMemoryLeak,
		Description: "memory leak detected in card driver or firmware",
		Severity:    domain.SeverityMedium,
		Steps: []string{
			"Restart driver modules",
			"Clear memory caches",
			"Apply memory patches",
			"Monitor memory usage",
		},
		ExpectedOutcome: "memory usage returns to baseline",
	},
}

// RecipeFor returns the recipe for a failure type. Lookup never fails for any
// enumerated type; anything else is an invalid input.
func RecipeFor(ft domain.FailureType) (domain.RecoveryRecipe, error) {
	recipe, ok := recipes[ft]
	if !ok {
		return domain.RecoveryRecipe{}, fmt.Errorf("%w: %q", domain.ErrUnknownFailureType, ft)
	}
	return recipe, nil
}

// ClassifyVerdict maps a critical verdict to the failure category whose recipe
// should run. Precedence follows the most specific signal available.
func ClassifyVerdict(snap domain.HealthSnapshot, v domain.HealthVerdict) domain.FailureType {
	switch {
	case snap.FirmwareStatus == domain.FirmwareFailed,
		snap.FirmwareStatus == domain.FirmwareCorrupted:
		return domain.FailureFirmwareCorruption
	case v.HasAnomaly(domain.AnomalyLinkDown):
		return domain.FailureNetworkConnectivity
	case v.HasAnomaly(domain.AnomalyHighInterrupts):
		return domain.FailureInterruptStorm
	case v.HasAnomaly(domain.AnomalyExcessiveErrors):
		return domain.FailureCoreDump
	case v.HasAnomaly(domain.AnomalyHighTemperature), v.HasAnomaly(domain.AnomalyHighPower):
		return domain.FailureHardwareFault
	default:
		return domain.FailureBootFailure
	}
}
