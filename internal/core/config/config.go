package config

import (
	"time"

	"github.com/nixer89/vanity-search-backend/internal/infra/ledger"
	"github.com/nixer89/vanity-search-backend/internal/infra/oracle"
	redisclient "github.com/nixer89/vanity-search-backend/internal/infra/redis"
	"github.com/nixer89/vanity-search-backend/internal/infra/storage/postgres"
	"github.com/nixer89/vanity-search-backend/internal/infra/vanitypool"
	"github.com/nixer89/vanity-search-backend/internal/infra/wallet"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Wallet     wallet.Config      `yaml:"wallet"`
	Oracle     oracle.Config      `yaml:"oracle"`
	Ledger     ledger.Config      `yaml:"ledger"`
	VanityPool vanitypool.Config  `yaml:"vanity_pool"`
	Settlement SettlementConfig   `yaml:"settlement"`
	Sweep      SweepConfig        `yaml:"sweep"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
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

// SettlementConfig tunes the vanity settlement workflow.
type SettlementConfig struct {
	// StrictLivenet requires purchase/activation payments to be confirmed on
	// the production network before any ledger mutation happens.
	StrictLivenet bool `yaml:"strict_livenet"`

	// RekeyConfirmDelay is how long to wait for ledger consensus before
	// checking a submitted rekey transaction.
	RekeyConfirmDelay time.Duration `yaml:"rekey_confirm_delay"`

	// ActivationAmount is the fixed reserve-sized amount, in drops, injected
	// into activation payments.
	ActivationAmount string `yaml:"activation_amount"`

	// DonationInstruction marks payment payloads that skip the oracle
	// liveness gate.
	DonationInstruction string `yaml:"donation_instruction"`
}

// SweepConfig tunes the correlation-record cleanup sweep.
type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
	Grace    time.Duration `yaml:"grace"`
}
