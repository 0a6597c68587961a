package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/capitation/pkg/application/services/coefficients"
	"github.com/vsinha/capitation/pkg/application/services/rebalance"
	"github.com/vsinha/capitation/pkg/application/services/replication"
	"github.com/vsinha/capitation/pkg/application/services/simulation"
	"github.com/vsinha/capitation/pkg/domain/entities"
)

// Config is the full policy file
type Config struct {
	Inputs      InputsConfig      `yaml:"inputs"`
	Workload    WorkloadConfig    `yaml:"workload"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Rebalance   RebalanceConfig   `yaml:"rebalance"`
	Replication ReplicationConfig `yaml:"replication"`

	// Overrides replaces the national defaults entirely when present.
	Overrides *entities.PolicyOverrides `yaml:"overrides"`
}

// InputsConfig locates the CSV inputs
type InputsConfig struct {
	PopulationVisits string `yaml:"population_visits"`
	Districts        string `yaml:"districts"`
	Transfers        string `yaml:"transfers"`
	Budgets          string `yaml:"budgets"`

	// Delimiter is a single character; empty means ','.
	Delimiter string `yaml:"delimiter"`
}

// WorkloadConfig holds the workload clamp bounds
type WorkloadConfig struct {
	UpMax   float64 `yaml:"up_max"`
	DownMax float64 `yaml:"down_max"`
}

// SimulationConfig selects the variants and the reassignment share
type SimulationConfig struct {
	ReassignPercentage float64  `yaml:"reassign_percentage"`
	Variants           []string `yaml:"variants"`
}

// RebalanceConfig selects the rebalanced variant and its floor
type RebalanceConfig struct {
	Variant           string  `yaml:"variant"`
	DownMaxPercentage float64 `yaml:"down_max_percentage"`
}

// ReplicationConfig holds the historical funding pools
type ReplicationConfig struct {
	NarrowPool   decimal.Decimal `yaml:"narrow_pool"`
	FamilyPool   decimal.Decimal `yaml:"family_pool"`
	InsuredRatio float64         `yaml:"insured_ratio"`
}

// Load reads and parses the YAML policy file at path. Relative input paths
// are resolved against the directory of path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Inputs.resolve(filepath.Dir(path))

	if err := cfg.validateInputs(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Parse decodes a policy document onto the defaults and validates the
// policy sections. Input paths are not checked.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if cfg.Overrides == nil {
		overrides := entities.DefaultOverrides()
		cfg.Overrides = &overrides
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config populated with the policy defaults
func Defaults() *Config {
	return &Config{
		Inputs: InputsConfig{
			PopulationVisits: "population_visits.csv",
			Districts:        "districts.csv",
			Transfers:        "transfers.csv",
			Budgets:          "budgets.csv",
		},
		Workload: WorkloadConfig{
			UpMax:   coefficients.DefaultUpMax,
			DownMax: coefficients.DefaultDownMax,
		},
		Simulation: SimulationConfig{
			ReassignPercentage: simulation.DefaultReassignPercentage,
			Variants:           []string{"old", "1", "2", "3"},
		},
		Rebalance: RebalanceConfig{
			Variant:           "1",
			DownMaxPercentage: rebalance.DefaultDownMaxPercentage,
		},
		Replication: ReplicationConfig{
			NarrowPool:   replication.DefaultNarrowPool,
			FamilyPool:   replication.DefaultFamilyPool,
			InsuredRatio: replication.DefaultInsuredRatio,
		},
	}
}

func (c *Config) validate() error {
	if len(c.Simulation.Variants) == 0 {
		return errors.New("simulation.variants must not be empty")
	}
	seen := make(map[entities.Variant]int, len(c.Simulation.Variants))
	for i, name := range c.Simulation.Variants {
		v, err := entities.ParseVariant(name)
		if err != nil {
			return fmt.Errorf("simulation.variants[%d]: %w", i, err)
		}
		if first, dup := seen[v]; dup {
			return fmt.Errorf("simulation.variants[%d]: %s duplicates simulation.variants[%d]", i, v, first)
		}
		seen[v] = i
	}
	if c.Simulation.ReassignPercentage < 0 || c.Simulation.ReassignPercentage > 1 {
		return fmt.Errorf("simulation.reassign_percentage must be within [0, 1], got %g", c.Simulation.ReassignPercentage)
	}

	rebalanced, err := entities.ParseVariant(c.Rebalance.Variant)
	if err != nil {
		return fmt.Errorf("rebalance.variant: %w", err)
	}
	variants, _ := c.Variants()
	found := false
	for _, v := range variants {
		found = found || v == rebalanced
	}
	if !found {
		return fmt.Errorf("rebalance.variant %s is not listed in simulation.variants", rebalanced)
	}

	if !c.Replication.NarrowPool.IsPositive() {
		return errors.New("replication.narrow_pool must be positive")
	}
	if !c.Replication.FamilyPool.IsPositive() {
		return errors.New("replication.family_pool must be positive")
	}
	if c.Replication.InsuredRatio < 1 {
		return fmt.Errorf("replication.insured_ratio must be at least 1, got %g", c.Replication.InsuredRatio)
	}

	if len([]rune(c.Inputs.Delimiter)) > 1 {
		return fmt.Errorf("inputs.delimiter must be a single character, got %q", c.Inputs.Delimiter)
	}
	return nil
}

func (c *Config) validateInputs() error {
	for name, path := range map[string]string{
		"inputs.population_visits": c.Inputs.PopulationVisits,
		"inputs.districts":         c.Inputs.Districts,
		"inputs.transfers":         c.Inputs.Transfers,
		"inputs.budgets":           c.Inputs.Budgets,
	} {
		if path == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

func (in *InputsConfig) resolve(dir string) {
	for _, p := range []*string{&in.PopulationVisits, &in.Districts, &in.Transfers, &in.Budgets} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Comma returns the CSV delimiter rune, or 0 for the default
func (in InputsConfig) Comma() rune {
	for _, r := range in.Delimiter {
		return r
	}
	return 0
}

// Variants returns the parsed simulation variants
func (c *Config) Variants() ([]entities.Variant, error) {
	variants := make([]entities.Variant, 0, len(c.Simulation.Variants))
	for _, name := range c.Simulation.Variants {
		v, err := entities.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// RebalanceVariant returns the parsed rebalance variant
func (c *Config) RebalanceVariant() (entities.Variant, error) {
	return entities.ParseVariant(c.Rebalance.Variant)
}

// WorkloadSettings converts the workload section for the calculator
func (c *Config) WorkloadSettings() coefficients.WorkloadConfig {
	return coefficients.WorkloadConfig{UpMax: c.Workload.UpMax, DownMax: c.Workload.DownMax}
}

// SimulationSettings converts the simulation section for the simulator
func (c *Config) SimulationSettings() simulation.Config {
	return simulation.Config{ReassignPercentage: c.Simulation.ReassignPercentage}
}

// ReplicationSettings converts the replication section for the replicator
func (c *Config) ReplicationSettings() replication.Config {
	return replication.Config{
		NarrowPool:   c.Replication.NarrowPool,
		FamilyPool:   c.Replication.FamilyPool,
		InsuredRatio: c.Replication.InsuredRatio,
	}
}

// PolicyOverrides returns the facility exceptions in force
func (c *Config) PolicyOverrides() entities.PolicyOverrides {
	if c.Overrides == nil {
		return entities.DefaultOverrides()
	}
	return *c.Overrides
}
