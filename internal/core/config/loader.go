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

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4001
	}
	if cfg.Wallet.Timeout == 0 {
		cfg.Wallet.Timeout = 10 * time.Second
	}
	if cfg.Oracle.Timeout == 0 {
		cfg.Oracle.Timeout = 10 * time.Second
	}
	if cfg.Oracle.LivenetURL == "" {
		cfg.Oracle.LivenetURL = "https://bithomp.com"
	}
	if cfg.Oracle.TestnetURL == "" {
		cfg.Oracle.TestnetURL = "https://test.bithomp.com"
	}
	if cfg.Ledger.Timeout == 0 {
		cfg.Ledger.Timeout = 10 * time.Second
	}
	if cfg.Ledger.RateCurrency == "" {
		cfg.Ledger.RateCurrency = "USD"
	}
	if cfg.VanityPool.Timeout == 0 {
		cfg.VanityPool.Timeout = 10 * time.Second
	}
	if cfg.Settlement.RekeyConfirmDelay == 0 {
		cfg.Settlement.RekeyConfirmDelay = 4 * time.Second
	}
	if cfg.Settlement.ActivationAmount == "" {
		cfg.Settlement.ActivationAmount = "20001000"
	}
	if cfg.Settlement.DonationInstruction == "" {
		cfg.Settlement.DonationInstruction = "Thank you for your donation!"
	}
	if cfg.Sweep.Interval == 0 {
		cfg.Sweep.Interval = time.Hour
	}
	if cfg.Sweep.Grace == 0 {
		cfg.Sweep.Grace = 10 * 24 * time.Hour
	}

	return &cfg, nil
}
