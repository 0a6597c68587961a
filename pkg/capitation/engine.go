// Package capitation is the embeddable entry point: hand it already-parsed
// inputs and it runs the full pipeline against in-memory repositories.
package capitation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/vsinha/capitation/pkg/application/dto"
	"github.com/vsinha/capitation/pkg/application/services/orchestration"
	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/infrastructure/events"
	"github.com/vsinha/capitation/pkg/infrastructure/repositories/memory"
)

// largeInputRows is the row count above which GC pacing kicks in
const largeInputRows = 100_000

// Inputs are the four tables a run consumes
type Inputs struct {
	Rows      []*entities.PopulationVisitRow
	Districts []*entities.DistrictGeography
	Links     []*entities.TransferLink
	Budgets   []*entities.PriorBudget
}

// EngineConfig holds configuration for the engine
type EngineConfig struct {
	Settings orchestration.PipelineSettings
	// EnableGCPacing enables GC tuning for large inputs
	EnableGCPacing bool
	// EventStore receives the run's audit events; nil disables auditing
	EventStore events.EventStore
	Logger     *slog.Logger
}

// Engine runs the pipeline over in-memory inputs
type Engine struct {
	config EngineConfig
}

// NewEngine creates an engine with the national policy defaults
func NewEngine() *Engine {
	return NewEngineWithConfig(EngineConfig{
		Settings:       orchestration.DefaultPipelineSettings(),
		EnableGCPacing: true,
	})
}

// NewEngineWithConfig creates an engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Engine{config: config}
}

// Run loads the inputs into fresh repositories and executes every stage
func (e *Engine) Run(ctx context.Context, in Inputs) (*dto.PipelineResult, error) {
	if e.config.EnableGCPacing && len(in.Rows) > largeInputRows {
		old := debug.SetGCPercent(50)
		defer debug.SetGCPercent(old)
	}

	geography := memory.NewGeographyRepository()
	if err := geography.LoadDistricts(in.Districts); err != nil {
		return nil, fmt.Errorf("failed to load districts: %w", err)
	}
	transfers := memory.NewTransferRepository()
	if err := transfers.LoadLinks(in.Links); err != nil {
		return nil, fmt.Errorf("failed to load transfers: %w", err)
	}
	budgets := memory.NewBudgetRepository(len(in.Budgets))
	if err := budgets.LoadBudgets(in.Budgets); err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}

	return orchestration.NewPipelineOrchestrator(
		e.config.Settings,
		memory.NewRosterRepository(len(in.Budgets)),
		geography,
		transfers,
		budgets,
		e.config.EventStore,
		e.config.Logger,
	).Run(ctx, in.Rows)
}
