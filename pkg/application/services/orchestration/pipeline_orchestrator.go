package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/capitation/pkg/application/dto"
	"github.com/vsinha/capitation/pkg/application/services/coefficients"
	"github.com/vsinha/capitation/pkg/application/services/demographics"
	"github.com/vsinha/capitation/pkg/application/services/merge"
	"github.com/vsinha/capitation/pkg/application/services/rebalance"
	"github.com/vsinha/capitation/pkg/application/services/replication"
	"github.com/vsinha/capitation/pkg/application/services/simulation"
	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/domain/repositories"
	"github.com/vsinha/capitation/pkg/infrastructure/events"
)

// PipelineSettings holds every policy scalar a run needs
type PipelineSettings struct {
	Workload          coefficients.WorkloadConfig
	Simulation        simulation.Config
	Variants          []entities.Variant
	RebalanceVariant  entities.Variant
	DownMaxPercentage float64
	Replication       replication.Config
	Overrides         entities.PolicyOverrides
}

// DefaultPipelineSettings returns the national policy defaults
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		Workload:          coefficients.DefaultWorkloadConfig(),
		Simulation:        simulation.DefaultConfig(),
		Variants:          entities.KnownVariants(),
		RebalanceVariant:  entities.Variant1,
		DownMaxPercentage: rebalance.DefaultDownMaxPercentage,
		Replication:       replication.DefaultConfig(),
		Overrides:         entities.DefaultOverrides(),
	}
}

// PipelineOrchestrator runs the stages in order against the repositories
type PipelineOrchestrator struct {
	settings   PipelineSettings
	roster     repositories.RosterRepository
	geography  repositories.GeographyRepository
	transfers  repositories.TransferRepository
	budgets    repositories.BudgetRepository
	eventStore events.EventStore
	logger     *slog.Logger
}

// NewPipelineOrchestrator creates a new orchestrator. The roster repository
// is filled by the aggregation stage. A nil event store disables auditing; a
// nil logger uses slog.Default().
func NewPipelineOrchestrator(
	settings PipelineSettings,
	roster repositories.RosterRepository,
	geography repositories.GeographyRepository,
	transfers repositories.TransferRepository,
	budgets repositories.BudgetRepository,
	eventStore events.EventStore,
	logger *slog.Logger,
) *PipelineOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineOrchestrator{
		settings:   settings,
		roster:     roster,
		geography:  geography,
		transfers:  transfers,
		budgets:    budgets,
		eventStore: eventStore,
		logger:     logger,
	}
}

// Run executes aggregation through replication. Cancellation is checked
// between stages. A failed simulation variant or a failed rebalance is
// reported but does not abort the run.
func (po *PipelineOrchestrator) Run(ctx context.Context, rows []*entities.PopulationVisitRow) (*dto.PipelineResult, error) {
	result := &dto.PipelineResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := po.logger.With("run_id", result.RunID)

	variantNames := make([]string, len(po.settings.Variants))
	for i, v := range po.settings.Variants {
		variantNames[i] = v.String()
	}
	po.emit(result.RunID, events.RunStartedEvent, events.RunStarted{Variants: variantNames})

	fail := func(stage string, err error) (*dto.PipelineResult, error) {
		po.emit(result.RunID, events.RunFailedEvent, events.RunFailed{Stage: stage, Error: err.Error()})
		logger.Error("pipeline: run failed", "stage", stage, "error", err)
		return nil, fmt.Errorf("%s stage failed: %w", stage, err)
	}
	complete := func(report *entities.StageReport) {
		result.Reports = append(result.Reports, report)
		po.emit(result.RunID, events.StageCompletedEvent, events.StageCompleted{Report: *report})
		if report.Dropped > 0 {
			po.emit(result.RunID, events.FacilitiesDroppedEvent, events.FacilitiesDropped{
				Stage:   report.Stage,
				Count:   report.Dropped,
				Reasons: report.Warnings,
			})
		}
		logger.Debug("pipeline: stage completed", "report", report.String())
	}

	// Stage 1: aggregate demographics and publish the roster
	if err := ctx.Err(); err != nil {
		return fail(demographics.StageName, err)
	}
	aggregated, err := demographics.NewAggregator(po.settings.Overrides, logger).Aggregate(rows)
	if err != nil {
		return fail(demographics.StageName, err)
	}
	if err := po.roster.LoadFacilities(aggregated.Roster); err != nil {
		return fail(demographics.StageName, fmt.Errorf("failed to load roster: %w", err))
	}
	complete(aggregated.Report)

	// Stage 2: age-sex coefficients
	if err := ctx.Err(); err != nil {
		return fail(coefficients.AgeSexStageName, err)
	}
	coeffs, report, err := coefficients.NewAgeSexCalculator(logger).Calculate(aggregated.Demographics)
	if err != nil {
		return fail(coefficients.AgeSexStageName, err)
	}
	result.Coefficients = coeffs
	complete(report)

	// Stage 3: workload coefficients
	if err := ctx.Err(); err != nil {
		return fail(coefficients.WorkloadStageName, err)
	}
	roster, err := po.roster.GetAllFacilities()
	if err != nil {
		return fail(coefficients.WorkloadStageName, err)
	}
	result.Roster = roster
	workload, report, err := coefficients.NewWorkloadCalculator(po.settings.Workload, po.settings.Overrides, logger).
		Calculate(aggregated.Demographics, coeffs, roster)
	if err != nil {
		return fail(coefficients.WorkloadStageName, err)
	}
	result.Workload = workload
	complete(report)

	// Stage 4: geographic and budget merge
	if err := ctx.Err(); err != nil {
		return fail(merge.StageName, err)
	}
	merged, err := merge.NewMerger(po.geography, po.transfers, po.budgets, logger).Merge(workload)
	if err != nil {
		return fail(merge.StageName, err)
	}
	if len(merged.Records) == 0 {
		return fail(merge.StageName, fmt.Errorf("no facility has a prior budget: %w", entities.ErrMissingJoinKey))
	}
	result.Merge = merged
	complete(merged.Report)

	// Stage 5: simulate every variant
	if err := ctx.Err(); err != nil {
		return fail(simulation.StageName, err)
	}
	simulated := simulation.NewSimulator(po.settings.Simulation, po.settings.Overrides, logger).
		Simulate(merged.Records, po.settings.Variants)
	for _, v := range po.settings.Variants {
		if err, failed := simulated.Failures[v]; failed {
			po.emit(result.RunID, events.VariantFailedEvent, events.VariantFailed{Variant: v.String(), Error: err.Error()})
		}
	}
	result.Simulation = simulated
	complete(simulated.Report)

	// Stage 6: rebalance the selected variant
	if err := ctx.Err(); err != nil {
		return fail(rebalance.StageName, err)
	}
	rebalancer := rebalance.NewRebalancer(logger)
	rebalanced, err := rebalancer.Rebalance(simulated, po.settings.RebalanceVariant, po.settings.DownMaxPercentage)
	if err != nil {
		rebalancer.Report().Warn("rebalance skipped: %v", err)
		logger.Warn("pipeline: rebalance skipped", "variant", po.settings.RebalanceVariant.String(), "error", err)
	} else {
		result.Rebalance = rebalanced
		if rebalanced.Degraded {
			po.emit(result.RunID, events.RebalanceDegradedEvent, events.RebalanceDegraded{
				Variant:  rebalanced.Variant.String(),
				UpMax:    rebalanced.UpMax,
				Residual: rebalanced.Residual,
			})
		}
	}
	complete(rebalancer.Report())

	// Stage 7: replicate the prior-year budget
	if err := ctx.Err(); err != nil {
		return fail(replication.StageName, err)
	}
	replicated := replication.NewReplicator(po.settings.Replication, po.settings.Overrides, logger).
		Replicate(merged.Records, roster)
	result.Replication = replicated
	complete(replicated.Report)

	result.CompletedAt = time.Now()
	po.emit(result.RunID, events.RunCompletedEvent, events.RunCompleted{
		Facilities: result.Facilities(),
		Warnings:   result.WarningCount(),
	})
	logger.Info("pipeline: run completed",
		"facilities", result.Facilities(),
		"warnings", result.WarningCount(),
		"duration", result.Duration(),
	)

	return result, nil
}

func (po *PipelineOrchestrator) emit(runID, eventType string, data any) {
	if po.eventStore == nil {
		return
	}
	if err := po.eventStore.AppendEvent(runID, events.NewEvent(eventType, runID, data)); err != nil {
		po.logger.Warn("pipeline: failed to record event", "type", eventType, "error", err)
	}
}
