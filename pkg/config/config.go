// Package config loads the YAML configuration shared by the counter CLI and
// the ledger it drives.
package config

import (
	"fmt"
	"os"

	"go.firedancer.io/counter/pkg/cu"
	"go.firedancer.io/counter/pkg/sealevel"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProgramID       = "Counter111111111111111111111111111111111111"
	DefaultLedgerDir       = "counter-ledger"
	DefaultGenesisLamports = 10_000_000_000
	DefaultBatchSize       = 16
)

type RentConfig struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold"`
	BurnPercent         uint8   `yaml:"burn_percent"`
}

type Config struct {
	LedgerDir        string     `yaml:"ledger_dir"`
	ProgramID        string     `yaml:"program_id"`
	PayerKeypair     string     `yaml:"payer_keypair"`
	CounterKeypair   string     `yaml:"counter_keypair"`
	GenesisLamports  uint64     `yaml:"genesis_lamports"`
	ComputeUnitLimit uint64     `yaml:"compute_unit_limit"`
	UnmeteredCompute bool       `yaml:"unmetered_compute"`
	BatchSize        int        `yaml:"batch_size"`
	MetricsFile      string     `yaml:"metrics_file"`
	Rent             RentConfig `yaml:"rent"`
}

func (c *Config) setDefault() {
	rent := sealevel.DefaultRent()

	c.LedgerDir = DefaultLedgerDir
	c.ProgramID = DefaultProgramID
	c.GenesisLamports = DefaultGenesisLamports
	c.ComputeUnitLimit = cu.DefaultComputeUnitLimit
	c.BatchSize = DefaultBatchSize
	c.Rent = RentConfig{
		LamportsPerByteYear: rent.LamportsPerUint8Year,
		ExemptionThreshold:  rent.ExemptionThreshold,
		BurnPercent:         rent.BurnPercent,
	}
}

// New parses b over the defaults. An empty b yields the defaults.
func New(b []byte) (*Config, error) {
	c := &Config{}
	c.setDefault()
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the config file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return New(nil)
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(nil)
	} else if err != nil {
		return nil, err
	}
	return New(b)
}

func (c *Config) Validate() error {
	if c.LedgerDir == "" {
		return fmt.Errorf("ledger_dir must be set")
	}
	if c.ComputeUnitLimit == 0 {
		return fmt.Errorf("compute_unit_limit must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Rent.ExemptionThreshold < 0 {
		return fmt.Errorf("rent.exemption_threshold must not be negative")
	}
	if c.Rent.BurnPercent > 100 {
		return fmt.Errorf("rent.burn_percent must be at most 100, got %d", c.Rent.BurnPercent)
	}
	return nil
}

func (c *Config) SysvarRent() sealevel.SysvarRent {
	return sealevel.SysvarRent{
		LamportsPerUint8Year: c.Rent.LamportsPerByteYear,
		ExemptionThreshold:   c.Rent.ExemptionThreshold,
		BurnPercent:          c.Rent.BurnPercent,
	}
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
