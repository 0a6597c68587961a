// Package simulation computes per-facility budgets under each geographic
// coefficient variant, including narrow-specialist reassignment.
package simulation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/application/services/shared"
	"github.com/vsinha/capitation/pkg/domain/entities"
)

// StageName identifies this stage in reports and logs
const StageName = "simulation"

// Policy defaults
const (
	DefaultReassignPercentage = 0.25
	ImpactBinWidth            = 2.0
)

// Config holds the simulation policy scalars
type Config struct {
	// ReassignPercentage is the share of raw budget moved along transfer links.
	ReassignPercentage float64
}

// DefaultConfig returns the policy defaults
func DefaultConfig() Config {
	return Config{ReassignPercentage: DefaultReassignPercentage}
}

// Summary holds the per-variant totals
type Summary struct {
	TotalBudget     decimal.Decimal `json:"total_budget"`
	PerCapitaRate   float64         `json:"per_capita_rate"`
	TotalRaw        float64         `json:"total_raw"`
	TotalNew        float64         `json:"total_new"`
	UnresolvedLinks int             `json:"unresolved_links"`
}

// RegionTotal aggregates prior and simulated budgets of one region
type RegionTotal struct {
	Region     string  `json:"region"`
	Facilities int     `json:"facilities"`
	Prior      float64 `json:"prior"`
	New        float64 `json:"new"`
}

// Result holds the simulation records and per-variant outcomes. A variant
// appears either in Summaries or in Failures, never both.
type Result struct {
	Records map[entities.FacilityCode]*entities.SimulationRecord

	// Requested lists every distinct variant asked for, in request order.
	Requested []entities.Variant

	// Variants lists the variants that succeeded, in request order.
	Variants     []entities.Variant
	Summaries    map[entities.Variant]Summary
	Failures     map[entities.Variant]error
	RegionTotals map[entities.Variant][]RegionTotal
	Histograms   map[entities.Variant][]shared.Bin
	Report       *entities.StageReport
}

// Succeeded reports whether a variant produced budgets
func (r *Result) Succeeded(v entities.Variant) bool {
	_, ok := r.Summaries[v]
	return ok
}

// Simulator runs the budget formula for each requested variant
type Simulator struct {
	config    Config
	overrides entities.PolicyOverrides
	logger    *slog.Logger
}

// NewSimulator creates a new simulator; a nil logger uses slog.Default()
func NewSimulator(config Config, overrides entities.PolicyOverrides, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{config: config, overrides: overrides, logger: logger}
}

// Simulate builds fresh simulation records from the merged input and
// evaluates every variant independently. A failing variant is recorded in
// Result.Failures and does not affect the others.
func (s *Simulator) Simulate(merged map[entities.FacilityCode]*entities.MergedRecord, variants []entities.Variant) *Result {
	report := entities.NewStageReport(StageName)
	result := &Result{
		Records:      make(map[entities.FacilityCode]*entities.SimulationRecord, len(merged)),
		Summaries:    make(map[entities.Variant]Summary),
		Failures:     make(map[entities.Variant]error),
		RegionTotals: make(map[entities.Variant][]RegionTotal),
		Histograms:   make(map[entities.Variant][]shared.Bin),
		Report:       report,
	}

	codes := entities.SortedCodes(merged)
	totalBudget := decimal.Zero
	for _, code := range codes {
		m := merged[code]
		record := &entities.SimulationRecord{
			Facility:    m.Facility,
			People:      m.People,
			Adjusted:    m.Adjusted,
			Altitude:    m.Altitude,
			Rural:       m.Rural,
			Density:     m.Density,
			Links:       m.Links,
			PriorBudget: m.PriorBudgetUnits(),
			GeokOld:     m.GeokOld,
			Budgets:     make(map[entities.Variant]entities.VariantBudget, len(variants)),
		}
		record.DefineGeographicCoefficients()
		result.Records[code] = record
		totalBudget = totalBudget.Add(entities.ToUnits(m.PrimaryCare))
		report.Processed++
	}

	if scaled := s.overrides.WorkloadScaleDown; scaled != nil {
		if record, ok := result.Records[*scaled]; ok {
			record.Adjusted *= 1 - s.config.ReassignPercentage
			s.logger.Debug("simulation: workload scaled down", "facility", *scaled, "adjusted", record.Adjusted)
		}
	}

	seen := make(map[entities.Variant]bool, len(variants))
	for _, v := range variants {
		if seen[v] {
			report.Warn("variant %s requested more than once", v)
			continue
		}
		seen[v] = true
		result.Requested = append(result.Requested, v)

		summary, err := s.simulateVariant(result.Records, codes, v, totalBudget)
		if err != nil {
			result.Failures[v] = err
			report.Warn("variant %s failed: %v", v, err)
			s.logger.Error("simulation: variant failed", "variant", v.String(), "error", err)
			continue
		}
		if summary.UnresolvedLinks > 0 {
			report.Warn("variant %s: %d transfer links point outside the merged set", v, summary.UnresolvedLinks)
		}
		result.Variants = append(result.Variants, v)
		result.Summaries[v] = summary
		result.RegionTotals[v] = regionTotals(result.Records, codes, v)
		result.Histograms[v] = impactHistogram(result.Records, codes, v)

		s.logger.Info("simulation: variant computed",
			"variant", v.String(),
			"total_budget", summary.TotalBudget.StringFixed(2),
			"per_capita_rate", summary.PerCapitaRate,
			"unresolved_links", summary.UnresolvedLinks,
		)
	}

	return result
}

func (s *Simulator) simulateVariant(
	records map[entities.FacilityCode]*entities.SimulationRecord,
	codes []entities.FacilityCode,
	v entities.Variant,
	totalBudget decimal.Decimal,
) (Summary, error) {
	summary := Summary{TotalBudget: totalBudget}

	geoks := make(map[entities.FacilityCode]float64, len(codes))
	var weighted float64
	for _, code := range codes {
		r := records[code]
		geok, err := r.Geok(v)
		if err != nil {
			return summary, err
		}
		geoks[code] = geok
		weighted += r.People * geok * r.Adjusted
	}
	if weighted == 0 {
		return summary, fmt.Errorf("variant %s: total weighted population is zero: %w", v, entities.ErrDivisionByZero)
	}

	total := totalBudget.InexactFloat64()
	summary.PerCapitaRate = total / weighted

	raw := make(map[entities.FacilityCode]float64, len(codes))
	for _, code := range codes {
		r := records[code]
		raw[code] = r.People * summary.PerCapitaRate * geoks[code] * r.Adjusted
	}

	share := func(link *entities.FacilityCode) float64 {
		if link == nil {
			return 0
		}
		value, ok := raw[*link]
		if !ok {
			summary.UnresolvedLinks++
			return 0
		}
		return value * s.config.ReassignPercentage
	}

	budgets := make(map[entities.FacilityCode]entities.VariantBudget, len(codes))
	for _, code := range codes {
		r := records[code]
		b := entities.VariantBudget{
			Raw:  raw[code],
			Add1: share(r.Links.OriginPrimary),
			Add2: share(r.Links.OriginSecondary),
		}
		if r.Links.Destination != nil {
			b.Subtract = raw[code] * s.config.ReassignPercentage
			if _, ok := raw[*r.Links.Destination]; !ok {
				summary.UnresolvedLinks++
			}
		}
		b.New = b.Raw - b.Subtract + b.Add1 + b.Add2
		if r.PriorBudget != 0 {
			b.Impact = (b.New/r.PriorBudget - 1) * 100
		}
		budgets[code] = b

		summary.TotalRaw += b.Raw
		summary.TotalNew += b.New
	}

	// Only publish once the whole variant succeeded.
	for code, b := range budgets {
		records[code].Budgets[v] = b
	}

	return summary, nil
}

func regionTotals(records map[entities.FacilityCode]*entities.SimulationRecord, codes []entities.FacilityCode, v entities.Variant) []RegionTotal {
	byRegion := make(map[string]*RegionTotal)
	for _, code := range codes {
		r := records[code]
		total, ok := byRegion[r.Facility.Region]
		if !ok {
			total = &RegionTotal{Region: r.Facility.Region}
			byRegion[r.Facility.Region] = total
		}
		total.Facilities++
		total.Prior += r.PriorBudget
		total.New += r.Budgets[v].New
	}

	totals := make([]RegionTotal, 0, len(byRegion))
	for _, total := range byRegion {
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Region < totals[j].Region })
	return totals
}

func impactHistogram(records map[entities.FacilityCode]*entities.SimulationRecord, codes []entities.FacilityCode, v entities.Variant) []shared.Bin {
	impacts := make([]float64, 0, len(codes))
	for _, code := range codes {
		impacts = append(impacts, records[code].Budgets[v].Impact)
	}
	return shared.Histogram(impacts, ImpactBinWidth)
}
