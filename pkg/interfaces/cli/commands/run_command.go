package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vsinha/capitation/pkg/application/dto"
	"github.com/vsinha/capitation/pkg/application/services/orchestration"
	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/domain/services"
	"github.com/vsinha/capitation/pkg/infrastructure/config"
	"github.com/vsinha/capitation/pkg/infrastructure/events"
	"github.com/vsinha/capitation/pkg/infrastructure/metrics"
	"github.com/vsinha/capitation/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/capitation/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/capitation/pkg/interfaces/cli/output"
)

// Config holds configuration for the run command
type Config struct {
	ConfigPath  string
	OutputDir   string
	Format      string
	MetricsFile string
	Verbose     bool
}

// RunCommand loads the inputs named by the policy file and runs the pipeline once
type RunCommand struct {
	config Config
	logger *slog.Logger
}

// NewRunCommand creates a new run command; a nil logger uses slog.Default()
func NewRunCommand(config Config, logger *slog.Logger) *RunCommand {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunCommand{
		config: config,
		logger: logger,
	}
}

// Execute runs the pipeline and writes its outputs
func (c *RunCommand) Execute(ctx context.Context) error {
	if c.config.ConfigPath == "" {
		return fmt.Errorf("validation error: a policy file is required")
	}

	policy, err := config.Load(c.config.ConfigPath)
	if err != nil {
		return err
	}

	_, err = c.run(ctx, policy)
	return err
}

// run executes one pipeline pass against an already loaded policy
func (c *RunCommand) run(ctx context.Context, policy *config.Config) (*dto.PipelineResult, error) {
	settings, err := SettingsFromConfig(policy)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	inputs, err := c.loadInputs(policy)
	if err != nil {
		return nil, err
	}

	eventStore := events.NewInMemoryEventStore(c.logger)
	if c.config.Verbose {
		if err := eventStore.Subscribe(events.AllEventTypes(), events.NewLogHandler(c.logger)); err != nil {
			return nil, fmt.Errorf("failed to subscribe event logger: %w", err)
		}
	}
	orchestrator := orchestration.NewPipelineOrchestrator(
		settings,
		memory.NewRosterRepository(0),
		inputs.geography,
		inputs.transfers,
		inputs.budgets,
		eventStore,
		c.logger,
	)

	result, err := orchestrator.Run(ctx, inputs.rows)
	if err != nil {
		return nil, err
	}

	c.checkLinkCoverage(inputs, result)

	if err := output.Generate(result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
	}); err != nil {
		return nil, fmt.Errorf("failed to generate output: %w", err)
	}

	if c.config.MetricsFile != "" {
		if err := writeMetricsFile(c.config.MetricsFile, result); err != nil {
			return nil, fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if c.config.Verbose {
		recorded, err := eventStore.ReadEvents(result.RunID, 0)
		if err == nil {
			c.logger.Info("run: events recorded", "run_id", result.RunID, "count", len(recorded))
		}
	}

	return result, nil
}

// SettingsFromConfig converts a policy file into orchestrator settings
func SettingsFromConfig(policy *config.Config) (orchestration.PipelineSettings, error) {
	variants, err := policy.Variants()
	if err != nil {
		return orchestration.PipelineSettings{}, err
	}
	rebalanceVariant, err := policy.RebalanceVariant()
	if err != nil {
		return orchestration.PipelineSettings{}, err
	}

	return orchestration.PipelineSettings{
		Workload:          policy.WorkloadSettings(),
		Simulation:        policy.SimulationSettings(),
		Variants:          variants,
		RebalanceVariant:  rebalanceVariant,
		DownMaxPercentage: policy.Rebalance.DownMaxPercentage,
		Replication:       policy.ReplicationSettings(),
		Overrides:         policy.PolicyOverrides(),
	}, nil
}

type loadedInputs struct {
	rows      []*entities.PopulationVisitRow
	links     []*entities.TransferLink
	geography *memory.GeographyRepository
	transfers *memory.TransferRepository
	budgets   *memory.BudgetRepository
}

// loadInputs reads the four CSV inputs into memory repositories
func (c *RunCommand) loadInputs(policy *config.Config) (*loadedInputs, error) {
	loader := csv.NewLoader()
	loader.Comma = policy.Inputs.Comma()

	rows, err := loader.LoadPopulationVisits(policy.Inputs.PopulationVisits)
	if err != nil {
		return nil, fmt.Errorf("error loading population visits: %w", err)
	}
	districts, err := loader.LoadDistricts(policy.Inputs.Districts)
	if err != nil {
		return nil, fmt.Errorf("error loading districts: %w", err)
	}
	links, err := loader.LoadTransfers(policy.Inputs.Transfers)
	if err != nil {
		return nil, fmt.Errorf("error loading transfers: %w", err)
	}
	budgets, err := loader.LoadBudgets(policy.Inputs.Budgets)
	if err != nil {
		return nil, fmt.Errorf("error loading budgets: %w", err)
	}

	c.logger.Info("run: inputs loaded",
		"rows", len(rows),
		"districts", len(districts),
		"links", len(links),
		"budgets", len(budgets),
	)

	validation := services.NewLinkValidator().ValidateLinks(links)
	for _, finding := range validation.Errors {
		c.logger.Warn("run: transfer link check", "finding", finding)
	}

	in := &loadedInputs{
		rows:      rows,
		links:     links,
		geography: memory.NewGeographyRepository(),
		transfers: memory.NewTransferRepository(),
		budgets:   memory.NewBudgetRepository(len(budgets)),
	}
	if err := in.geography.LoadDistricts(districts); err != nil {
		return nil, fmt.Errorf("failed to load districts into repository: %w", err)
	}
	if err := in.transfers.LoadLinks(links); err != nil {
		return nil, fmt.Errorf("failed to load transfers into repository: %w", err)
	}
	if err := in.budgets.LoadBudgets(budgets); err != nil {
		return nil, fmt.Errorf("failed to load budgets into repository: %w", err)
	}
	return in, nil
}

// checkLinkCoverage logs links that point outside the aggregated roster
func (c *RunCommand) checkLinkCoverage(in *loadedInputs, result *dto.PipelineResult) {
	coverage := services.NewLinkValidator().ValidateRosterCoverage(in.links, result.Roster)
	for _, finding := range coverage.Errors {
		c.logger.Warn("run: transfer link check", "finding", finding)
	}
}

// writeMetricsFile writes the textfile-collector file through a rename so a
// scrape never sees a partial file
func writeMetricsFile(path string, result *dto.PipelineResult) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".capitation-*.prom")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := metrics.WriteStageReports(tmp, result.Reports, runGauges(result)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// runGauges collects the run-level values exported next to the stage gauges
func runGauges(result *dto.PipelineResult) []metrics.Gauge {
	gauges := []metrics.Gauge{
		{Name: "run_duration_seconds", Help: "Wall time of the last run.", Value: result.Duration().Seconds()},
		{Name: "run_facilities", Help: "Facilities that reached simulation.", Value: float64(result.Facilities())},
	}

	if sim := result.Simulation; sim != nil {
		for _, v := range sim.Requested {
			ok := 0.0
			if s, succeeded := sim.Summaries[v]; succeeded {
				ok = 1
				gauges = append(gauges, metrics.Gauge{
					Name:   "variant_total_new",
					Help:   "Sum of simulated budgets per variant.",
					Labels: map[string]string{"variant": v.String()},
					Value:  s.TotalNew,
				})
			}
			gauges = append(gauges, metrics.Gauge{
				Name:   "variant_succeeded",
				Help:   "Whether a variant produced budgets.",
				Labels: map[string]string{"variant": v.String()},
				Value:  ok,
			})
		}
	}

	if rb := result.Rebalance; rb != nil {
		degraded := 0.0
		if rb.Degraded {
			degraded = 1
		}
		gauges = append(gauges,
			metrics.Gauge{Name: "rebalance_upmax_ratio", Help: "Solved upward cap of the rebalanced variant.", Value: rb.UpMax},
			metrics.Gauge{Name: "rebalance_degraded", Help: "Whether the rebalance cap is approximate.", Value: degraded},
		)
	}

	return gauges
}
