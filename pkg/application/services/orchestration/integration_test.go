package orchestration

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/infrastructure/events"
	"github.com/vsinha/capitation/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/capitation/pkg/infrastructure/testing"
)

func newOrchestrator(ds *testhelpers.Dataset, store events.EventStore) *PipelineOrchestrator {
	return NewPipelineOrchestrator(
		DefaultPipelineSettings(),
		ds.Roster,
		ds.Geography,
		ds.Transfers,
		ds.Budgets,
		store,
		nil,
	)
}

func TestPipelineOrchestrator_Run(t *testing.T) {
	ds := testhelpers.BuildSampleDataset()
	store := events.NewInMemoryEventStore(nil)

	result, err := newOrchestrator(ds, store).Run(context.Background(), ds.Rows)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.RunID == "" {
		t.Error("Expected a run ID")
	}
	if len(result.Reports) != 7 {
		t.Errorf("Expected 7 stage reports, got %d", len(result.Reports))
	}

	// 102412 is excluded during aggregation, 104 has no budget
	if _, ok := result.Workload[102412]; ok {
		t.Error("Expected excluded facility absent from workload")
	}
	if _, ok := result.Workload[104]; !ok {
		t.Error("Expected facility without budget to have a workload record")
	}
	if _, ok := result.Merge.Records[104]; ok {
		t.Error("Expected facility without budget dropped by merge")
	}
	if result.Facilities() != 4 {
		t.Errorf("Expected 4 merged facilities, got %d", result.Facilities())
	}
	if _, ok := result.Simulation.Records[104]; ok {
		t.Error("Expected facility without budget absent from simulation")
	}
	if _, ok := result.Replication.Records[104]; ok {
		t.Error("Expected facility without budget absent from replication")
	}

	for _, v := range entities.KnownVariants() {
		summary, ok := result.Simulation.Summaries[v]
		if !ok {
			t.Errorf("Variant %s missing: %v", v, result.Simulation.Failures[v])
			continue
		}
		total := summary.TotalBudget.InexactFloat64()
		if math.Abs(summary.TotalRaw-total) > 1e-6*total {
			t.Errorf("Variant %s: raw %f does not conserve %f", v, summary.TotalRaw, total)
		}
	}

	if result.Rebalance == nil {
		t.Fatal("Expected a rebalance result")
	}
	if !result.Rebalance.Degraded && math.Abs(result.Rebalance.ExcessTotal-result.Rebalance.ShortfallTotal) > 1e-6 {
		t.Errorf("Rebalance not neutral: excess %f shortfall %f", result.Rebalance.ExcessTotal, result.Rebalance.ShortfallTotal)
	}

	// railway clinic gets no narrow-specialist population
	if result.Replication.Records[102272].PeopleNarrow != 0 {
		t.Error("Expected exempt facility to have no narrow-specialist population")
	}

	recorded, _ := store.ReadEvents(result.RunID, 1)
	// start, 7 stages, drops in demographics and merge, completion
	if len(recorded) != 11 {
		t.Errorf("Expected 11 audit events, got %d", len(recorded))
	}
	var droppedStages []string
	for _, e := range recorded {
		if e.Type() == events.FacilitiesDroppedEvent {
			droppedStages = append(droppedStages, e.Data().(events.FacilitiesDropped).Stage)
		}
	}
	if len(droppedStages) != 2 || droppedStages[0] != "demographics" || droppedStages[1] != "merge" {
		t.Errorf("Expected drop events for demographics and merge, got %v", droppedStages)
	}
	if recorded[0].Type() != events.RunStartedEvent || recorded[len(recorded)-1].Type() != events.RunCompletedEvent {
		t.Errorf("Unexpected event order: first %s, last %s", recorded[0].Type(), recorded[len(recorded)-1].Type())
	}
}

func TestPipelineOrchestrator_Cancelled(t *testing.T) {
	ds := testhelpers.BuildSampleDataset()
	store := events.NewInMemoryEventStore(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator(ds, store).Run(ctx, ds.Rows)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	all, _ := store.ReadAllEvents(0)
	if len(all) != 2 || all[1].Type() != events.RunFailedEvent {
		t.Errorf("Expected start and failure events, got %d", len(all))
	}
}

func TestPipelineOrchestrator_NoBudgets(t *testing.T) {
	ds := testhelpers.BuildSampleDataset()
	ds.Budgets = memory.NewBudgetRepository(0)

	_, err := newOrchestrator(ds, nil).Run(context.Background(), ds.Rows)
	if !errors.Is(err, entities.ErrMissingJoinKey) {
		t.Errorf("Expected empty merge to fail with ErrMissingJoinKey, got %v", err)
	}
}

func TestPipelineOrchestrator_FailedRebalanceVariantIsReported(t *testing.T) {
	ds := testhelpers.BuildSampleDataset()
	settings := DefaultPipelineSettings()
	settings.Variants = []entities.Variant{entities.VariantOld}
	settings.RebalanceVariant = entities.Variant2

	orchestrator := NewPipelineOrchestrator(settings, ds.Roster, ds.Geography, ds.Transfers, ds.Budgets, nil, nil)
	result, err := orchestrator.Run(context.Background(), ds.Rows)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Rebalance != nil {
		t.Error("Expected no rebalance for a variant that was not simulated")
	}
	rebalanceReport := result.Reports[5]
	if rebalanceReport.Stage != "rebalance" || len(rebalanceReport.Warnings) == 0 {
		t.Errorf("Expected rebalance warning, got %+v", rebalanceReport)
	}
}
