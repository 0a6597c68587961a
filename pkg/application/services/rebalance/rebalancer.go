// Package rebalance applies a budget floor to one simulated variant and
// solves the cap that funds it, keeping the total budget unchanged.
package rebalance

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/vsinha/capitation/pkg/application/services/shared"
	"github.com/vsinha/capitation/pkg/application/services/simulation"
	"github.com/vsinha/capitation/pkg/domain/entities"
)

// StageName identifies this stage in reports and logs
const StageName = "rebalance"

// Policy defaults
const (
	DefaultDownMaxPercentage = 10.0
	DownMaxPercentageLower   = 0.0
	DownMaxPercentageUpper   = 100.0
)

// Rebalancer solves the budget-neutral cap for a simulated variant
type Rebalancer struct {
	solver shared.SolverOptions
	logger *slog.Logger
	report *entities.StageReport
}

// NewRebalancer creates a new rebalancer; a nil logger uses slog.Default()
func NewRebalancer(logger *slog.Logger) *Rebalancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rebalancer{logger: logger, report: entities.NewStageReport(StageName)}
}

// NewRebalancerWithSolver creates a rebalancer with custom solver options
func NewRebalancerWithSolver(solver shared.SolverOptions, logger *slog.Logger) *Rebalancer {
	r := NewRebalancer(logger)
	r.solver = solver
	return r
}

// Report returns the stage report of the most recent Rebalance call
func (r *Rebalancer) Report() *entities.StageReport {
	return r.report
}

// NormalizeDownMaxPercentage replaces a percentage outside [0, 100] with 100
func NormalizeDownMaxPercentage(pct float64) (float64, error) {
	if pct < DownMaxPercentageLower || pct > DownMaxPercentageUpper || math.IsNaN(pct) {
		return DownMaxPercentageUpper, &entities.RangeError{
			Parameter: "down_max_percentage",
			Value:     pct,
			Min:       DownMaxPercentageLower,
			Max:       DownMaxPercentageUpper,
			Applied:   DownMaxPercentageUpper,
		}
	}
	return pct, nil
}

// Rebalance tops every facility up to (1-downMax) of its prior budget and
// claws the cost back from facilities above (1+upMax) of it, where upMax is
// the smallest cap for which the two totals match. A solve that falls back
// to a scan is returned with Degraded set, not as an error.
func (r *Rebalancer) Rebalance(sim *simulation.Result, variant entities.Variant, downMaxPercentage float64) (*entities.RebalanceResult, error) {
	r.report = entities.NewStageReport(StageName)

	if sim == nil {
		return nil, errors.New("no simulation result to rebalance")
	}
	if err, failed := sim.Failures[variant]; failed {
		return nil, fmt.Errorf("variant %s failed in simulation: %w", variant, err)
	}
	summary, ok := sim.Summaries[variant]
	if !ok {
		return nil, fmt.Errorf("variant %s was not simulated", variant)
	}

	pct, err := NormalizeDownMaxPercentage(downMaxPercentage)
	if err != nil {
		r.report.WarnErr(err)
		r.logger.Warn("rebalance: down max percentage clamped", "error", err)
	}
	downMax := pct / 100

	result := &entities.RebalanceResult{
		Variant:           variant,
		TotalBudget:       summary.TotalBudget,
		DownMaxPercentage: pct,
		Records:           make(map[entities.FacilityCode]*entities.RebalancedRecord, len(sim.Records)),
	}

	codes := entities.SortedCodes(sim.Records)
	olds := make([]float64, 0, len(codes))
	news := make([]float64, 0, len(codes))
	for _, code := range codes {
		s := sim.Records[code]
		b := s.Budgets[variant]
		record := &entities.RebalancedRecord{
			Facility:  s.Facility,
			People:    s.People,
			OldBudget: s.PriorBudget,
			NewBudget: b.New,
			Impact:    b.Impact,
			Shortfall: math.Max(0, (1-downMax)*s.PriorBudget-b.New),
		}
		result.Records[code] = record
		result.ShortfallTotal += record.Shortfall
		olds = append(olds, record.OldBudget)
		news = append(news, record.NewBudget)
		r.report.Processed++
	}

	excessAt := func(upMax float64) float64 {
		var total float64
		for i := range olds {
			total += math.Max(0, news[i]-(1+upMax)*olds[i])
		}
		return total
	}

	root, err := shared.FindSmallestRoot(func(u float64) float64 {
		return excessAt(u) - result.ShortfallTotal
	}, 2*downMax, r.solver)
	if err != nil {
		if !errors.Is(err, entities.ErrRootNonconvergence) {
			return nil, err
		}
		r.report.WarnErr(err)
		r.report.Anomalies++
		r.logger.Warn("rebalance: degraded solve", "variant", variant.String(), "error", err)
	}

	result.UpMax = root.Root
	result.UpMaxPercentage = root.Root * 100
	result.Residual = root.Residual
	result.Iterations = root.Iterations
	result.Degraded = root.Degraded

	for _, code := range codes {
		record := result.Records[code]
		record.Excess = math.Max(0, record.NewBudget-(1+result.UpMax)*record.OldBudget)
		record.AdjustedBudget = record.NewBudget - record.Excess + record.Shortfall
		if record.OldBudget != 0 {
			record.AdjustedImpact = (record.AdjustedBudget/record.OldBudget - 1) * 100
		}
		result.ExcessTotal += record.Excess
	}

	r.logger.Info("rebalance: solved",
		"variant", variant.String(),
		"down_max_percentage", pct,
		"up_max_percentage", result.UpMaxPercentage,
		"shortfall_total", result.ShortfallTotal,
		"excess_total", result.ExcessTotal,
		"iterations", result.Iterations,
		"degraded", result.Degraded,
	)

	return result, nil
}
