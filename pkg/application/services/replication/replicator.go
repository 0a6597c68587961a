// Package replication reconstructs the prior-year budget from the
// historical funding pools with two formulas, as a model-fit check.
package replication

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/application/services/shared"
	"github.com/vsinha/capitation/pkg/domain/entities"
)

// StageName identifies this stage in reports and logs
const StageName = "replication"

// Policy defaults
var (
	DefaultNarrowPool = decimal.NewFromInt(1206684977)
	DefaultFamilyPool = decimal.NewFromInt(3308552674)
)

const (
	DefaultInsuredRatio = 3.02
	DeviationBinWidth   = 0.01
)

// Method names one replication formula
type Method string

const (
	// MethodBaseRate divides each pool by population times an averaged coefficient.
	MethodBaseRate Method = "method1"
	// MethodDirectRate divides each pool by the coefficient-weighted population.
	MethodDirectRate Method = "method2"
)

// Config holds the historical pools and the insured premium ratio
type Config struct {
	NarrowPool   decimal.Decimal
	FamilyPool   decimal.Decimal
	InsuredRatio float64
}

// DefaultConfig returns the historical policy constants
func DefaultConfig() Config {
	return Config{
		NarrowPool:   DefaultNarrowPool,
		FamilyPool:   DefaultFamilyPool,
		InsuredRatio: DefaultInsuredRatio,
	}
}

// Totals are the replicated sums of one method
type Totals struct {
	NarrowRate float64 `json:"narrow_rate"`
	FamilyRate float64 `json:"family_rate"`
	Narrow     float64 `json:"narrow"`
	Family     float64 `json:"family"`
	Total      float64 `json:"total"`
}

// Result holds both replications side by side
type Result struct {
	Records   map[entities.FacilityCode]*entities.ReplicationRecord
	Totals    map[Method]Totals
	Failures  map[Method]error
	Histogram []shared.Bin
	Report    *entities.StageReport

	WeightedGeokOldNS  float64
	WeightedGeokOldGSV float64
	WeightedPrefk      float64
}

// Replicator runs both replication formulas over merged records
type Replicator struct {
	config    Config
	overrides entities.PolicyOverrides
	logger    *slog.Logger
}

// NewReplicator creates a new replicator; a nil logger uses slog.Default()
func NewReplicator(config Config, overrides entities.PolicyOverrides, logger *slog.Logger) *Replicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replicator{config: config, overrides: overrides, logger: logger}
}

// Replicate computes both methods. Insured counts come from the roster when
// the facility is listed there. A zero denominator fails only the affected
// method.
func (r *Replicator) Replicate(merged map[entities.FacilityCode]*entities.MergedRecord, roster []*entities.Facility) *Result {
	report := entities.NewStageReport(StageName)
	result := &Result{
		Records:  make(map[entities.FacilityCode]*entities.ReplicationRecord, len(merged)),
		Totals:   make(map[Method]Totals),
		Failures: make(map[Method]error),
		Report:   report,
	}

	insured := make(map[entities.FacilityCode]float64, len(roster))
	for _, f := range roster {
		insured[f.Code] = f.Insured
	}

	codes := entities.SortedCodes(merged)
	for _, code := range codes {
		m := merged[code]
		record := &entities.ReplicationRecord{
			Facility:        m.Facility,
			People:          m.People,
			PeopleNarrow:    m.People,
			Insured:         m.Facility.Insured,
			TotalPopulation: m.TotalPopulation,
			GeokOldNS:       m.GeokOldNS,
			GeokOldGSV:      m.GeokOldGSV,
			GeokOld:         m.GeokOld,
			ActualBudget:    m.PriorBudgetUnits(),
		}
		if v, ok := insured[code]; ok {
			record.Insured = v
		}
		if exempt := r.overrides.NarrowSpecialistExempt; exempt != nil && *exempt == code {
			record.PeopleNarrow = 0
		}

		if record.People > 0 {
			record.Prefk = (record.Insured*(r.config.InsuredRatio-1) + record.People) / record.People
		} else {
			record.Prefk = 1
			report.Anomalies++
			report.Warn("facility %s has no population, prefk set to 1", code)
		}

		result.Records[code] = record
		report.Processed++
	}

	if err := r.baseRate(result, codes); err != nil {
		result.Failures[MethodBaseRate] = err
		report.Warn("%s failed: %v", MethodBaseRate, err)
		r.logger.Error("replication: method failed", "method", string(MethodBaseRate), "error", err)
	}
	if err := r.directRate(result, codes); err != nil {
		result.Failures[MethodDirectRate] = err
		report.Warn("%s failed: %v", MethodDirectRate, err)
		r.logger.Error("replication: method failed", "method", string(MethodDirectRate), "error", err)
	}

	_, baseFailed := result.Failures[MethodBaseRate]
	_, directFailed := result.Failures[MethodDirectRate]
	for _, code := range codes {
		record := result.Records[code]
		if record.ActualBudget == 0 {
			continue
		}
		if !baseFailed {
			record.Method1.Deviation = -1 + record.Method1.Total/record.ActualBudget
		}
		if !directFailed {
			record.Method2.Deviation = -1 + record.Method2.Total/record.ActualBudget
		}
	}

	if !directFailed {
		deviations := make([]float64, 0, len(codes))
		for _, code := range codes {
			deviations = append(deviations, result.Records[code].Method2.Deviation)
		}
		result.Histogram = shared.Histogram(deviations, DeviationBinWidth)
	}

	r.logger.Info("replication: replicated",
		"facilities", len(result.Records),
		"method1_total", result.Totals[MethodBaseRate].Total,
		"method2_total", result.Totals[MethodDirectRate].Total,
		"anomalies", report.Anomalies,
	)

	return result
}

// baseRate averages the coefficients first and applies one per-capita rate
// per pool
func (r *Replicator) baseRate(result *Result, codes []entities.FacilityCode) error {
	var ns, gsv, prefk, totalPopulation, people []float64
	var sumPeople, sumNarrow float64
	for _, code := range codes {
		rec := result.Records[code]
		ns = append(ns, rec.GeokOldNS)
		gsv = append(gsv, rec.GeokOldGSV)
		prefk = append(prefk, rec.Prefk)
		totalPopulation = append(totalPopulation, rec.TotalPopulation)
		people = append(people, rec.People)
		sumPeople += rec.People
		sumNarrow += rec.PeopleNarrow
	}

	nsAvg, err := shared.WeightedMean(ns, totalPopulation)
	if err != nil {
		return fmt.Errorf("weighted geok_old_ns: %w", err)
	}
	gsvAvg, err := shared.WeightedMean(gsv, totalPopulation)
	if err != nil {
		return fmt.Errorf("weighted geok_old_gsv: %w", err)
	}
	prefkAvg, err := shared.WeightedMean(prefk, people)
	if err != nil {
		return fmt.Errorf("weighted prefk: %w", err)
	}
	result.WeightedGeokOldNS = nsAvg
	result.WeightedGeokOldGSV = gsvAvg
	result.WeightedPrefk = prefkAvg

	narrowBase := sumNarrow * nsAvg
	familyBase := sumPeople * gsvAvg * prefkAvg
	if narrowBase == 0 || familyBase == 0 {
		return fmt.Errorf("weighted population is zero: %w", entities.ErrDivisionByZero)
	}

	totals := Totals{
		NarrowRate: r.config.NarrowPool.InexactFloat64() / narrowBase,
		FamilyRate: r.config.FamilyPool.InexactFloat64() / familyBase,
	}
	for _, code := range codes {
		rec := result.Records[code]
		rec.Method1.Narrow = rec.PeopleNarrow * totals.NarrowRate * rec.GeokOldNS
		rec.Method1.Family = rec.People * totals.FamilyRate * rec.GeokOldGSV * rec.Prefk
		rec.Method1.Total = rec.Method1.Narrow + rec.Method1.Family
		totals.Narrow += rec.Method1.Narrow
		totals.Family += rec.Method1.Family
	}
	totals.Total = totals.Narrow + totals.Family
	result.Totals[MethodBaseRate] = totals
	return nil
}

// directRate divides each pool by the coefficient-weighted population
func (r *Replicator) directRate(result *Result, codes []entities.FacilityCode) error {
	var narrowBase, familyBase float64
	for _, code := range codes {
		rec := result.Records[code]
		narrowBase += rec.PeopleNarrow * rec.GeokOldNS
		familyBase += rec.People * rec.GeokOldGSV * rec.Prefk
	}
	if narrowBase == 0 || familyBase == 0 {
		return fmt.Errorf("coefficient-weighted population is zero: %w", entities.ErrDivisionByZero)
	}

	totals := Totals{
		NarrowRate: r.config.NarrowPool.InexactFloat64() / narrowBase,
		FamilyRate: r.config.FamilyPool.InexactFloat64() / familyBase,
	}
	for _, code := range codes {
		rec := result.Records[code]
		rec.Method2.Narrow = rec.PeopleNarrow * totals.NarrowRate * rec.GeokOldNS
		rec.Method2.Family = rec.People * totals.FamilyRate * rec.GeokOldGSV * rec.Prefk
		rec.Method2.Total = rec.Method2.Narrow + rec.Method2.Family
		totals.Narrow += rec.Method2.Narrow
		totals.Family += rec.Method2.Family
	}
	totals.Total = totals.Narrow + totals.Family
	result.Totals[MethodDirectRate] = totals
	return nil
}
