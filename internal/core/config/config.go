package config

import (
	"time"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Cards     []CardConfig    `yaml:"cards"`
	Policy    PolicyConfig    `yaml:"policy"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Slack     SlackConfig     `yaml:"slack"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CardConfig holds settings for a single monitored DPU.
type CardConfig struct {
	ID              domain.CardID `yaml:"id"`
	Model           string        `yaml:"model"`
	FirmwareVersion string        `yaml:"firmware_version"`
	TargetFirmware  string        `yaml:"target_firmware"`
	Source          string        `yaml:"source"`    // "simulated" or "agent"
	AgentURL        string        `yaml:"agent_url"` // required when source is "agent"
	PollInterval    time.Duration `yaml:"poll_interval"`
	RetentionPeriod time.Duration `yaml:"retention_period"` // 0 = infinite
}

// PolicyConfig carries the anomaly thresholds. The defaults mirror the demo
// constants the service shipped with; deployments tune them per card family.
type PolicyConfig struct {
	TemperatureWarning  float64 `yaml:"temperature_warning"`  // C, > triggers high_temperature
	TemperatureCritical float64 `yaml:"temperature_critical"` // C, >= forces critical
	MaxErrors           int     `yaml:"max_errors"`           // > triggers excessive_errors
	MaxInterrupts       int     `yaml:"max_interrupts"`       // > triggers high_interrupt_count
	MaxPowerWatts       float64 `yaml:"max_power_watts"`      // > triggers high_power_consumption
}

// RecoveryConfig controls recipe execution and the retry queue.
type RecoveryConfig struct {
	StepFailureProbability float64       `yaml:"step_failure_probability"`
	MaxAttempts            int           `yaml:"max_attempts"`
	InitialDelay           time.Duration `yaml:"initial_delay"`
	MaxDelay               time.Duration `yaml:"max_delay"`
	DrainInterval          time.Duration `yaml:"drain_interval"`
}

// SimulatorConfig tunes the fabricated telemetry source.
type SimulatorConfig struct {
	Seed      int64              `yaml:"seed"` // 0 = time-based
	Injection map[string]float64 `yaml:"injection"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// KafkaConfig holds the telemetry event producer settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SlackConfig holds the critical-verdict alerting settings.
type SlackConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Channel    string        `yaml:"channel"`
	Cooldown   time.Duration `yaml:"cooldown"`
}
