package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Policy.TemperatureWarning == 0 {
		cfg.Policy.TemperatureWarning = 80
	}
	if cfg.Policy.TemperatureCritical == 0 {
		cfg.Policy.TemperatureCritical = 95
	}
	if cfg.Policy.MaxErrors == 0 {
		cfg.Policy.MaxErrors = 20
	}
	if cfg.Policy.MaxInterrupts == 0 {
		cfg.Policy.MaxInterrupts = 100
	}
	if cfg.Policy.MaxPowerWatts == 0 {
		cfg.Policy.MaxPowerWatts = 30
	}

	if cfg.Recovery.StepFailureProbability == 0 {
		cfg.Recovery.StepFailureProbability = 0.10
	}
	if cfg.Recovery.MaxAttempts == 0 {
		cfg.Recovery.MaxAttempts = 5
	}
	if cfg.Recovery.InitialDelay == 0 {
		cfg.Recovery.InitialDelay = 2 * time.Second
	}
	if cfg.Recovery.MaxDelay == 0 {
		cfg.Recovery.MaxDelay = 60 * time.Second
	}
	if cfg.Recovery.DrainInterval == 0 {
		cfg.Recovery.DrainInterval = 5 * time.Second
	}

	if cfg.Simulator.Injection == nil {
		cfg.Simulator.Injection = DefaultInjection()
	}

	if cfg.Slack.Cooldown == 0 {
		cfg.Slack.Cooldown = 5 * time.Minute
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "dpu-health-events"
	}

	for i := range cfg.Cards {
		if cfg.Cards[i].PollInterval == 0 {
			cfg.Cards[i].PollInterval = 10 * time.Second
		}
		if cfg.Cards[i].Source == "" {
			cfg.Cards[i].Source = "simulated"
		}
		if cfg.Cards[i].Model == "" {
			cfg.Cards[i].Model = "AMD Pensando DSC-25"
		}
	}
}

// DefaultInjection returns the demo failure-injection probability table.
func DefaultInjection() map[string]float64 {
	return map[string]float64{
		"power_failure":     0.05,
		"temperature_spike": 0.03,
		"memory_corruption": 0.02,
		"network_timeout":   0.04,
		"checksum_mismatch": 0.03,
	}
}
