package domain

import "time"

// CardID uniquely identifies a DPU card in the fleet.
type CardID = string

// FirmwareStatus represents the firmware lifecycle state of a card.
type FirmwareStatus string

const (
	FirmwareUnknown      FirmwareStatus = "unknown"
	FirmwareInstalling   FirmwareStatus = "installing"
	FirmwareInstalled    FirmwareStatus = "installed"
	FirmwareFailed       FirmwareStatus = "failed"
	FirmwareCorrupted    FirmwareStatus = "corrupted"
	FirmwareRecoveryMode FirmwareStatus = "recovery_mode"
)

// Card describes one monitored DPU.
type Card struct {
	ID              CardID         `json:"id"`
	Model           string         `json:"model"`
	FirmwareVersion string         `json:"firmware_version"`
	TargetFirmware  string         `json:"target_firmware"`
	Status          FirmwareStatus `json:"status"`
	RegisteredAt    time.Time      `json:"registered_at"`
}
