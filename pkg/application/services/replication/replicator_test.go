package replication

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

func relativeEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func mergedRecord(code entities.FacilityCode, people, insured, totalPopulation, ns, gsv float64, primaryCare int64) *entities.MergedRecord {
	return &entities.MergedRecord{
		Facility:        entities.Facility{Code: code, Insured: insured},
		People:          people,
		TotalPopulation: totalPopulation,
		GeokOldNS:       ns,
		GeokOldGSV:      gsv,
		GeokOld:         entities.LegacyCoefficient(gsv, ns),
		PrimaryCare:     decimal.NewFromInt(primaryCare),
	}
}

func sample() map[entities.FacilityCode]*entities.MergedRecord {
	return map[entities.FacilityCode]*entities.MergedRecord{
		100:    mergedRecord(100, 40000, 1000, 41000, 1.2, 1.1, 600000),
		200:    mergedRecord(200, 90000, 5000, 88000, 0.9, 1.0, 1500000),
		102272: mergedRecord(102272, 20000, 200, 20500, 1.0, 1.05, 300000),
	}
}

func TestReplicate_PrefkAndExemption(t *testing.T) {
	result := NewReplicator(DefaultConfig(), entities.DefaultOverrides(), nil).Replicate(sample(), nil)

	rec := result.Records[100]
	expected := (1000*(3.02-1) + 40000) / 40000
	if !relativeEqual(rec.Prefk, expected, 1e-12) {
		t.Errorf("Expected prefk %f, got %f", expected, rec.Prefk)
	}
	if result.Records[102272].PeopleNarrow != 0 {
		t.Error("Expected exempt facility to have no narrow-specialist population")
	}
	if result.Records[102272].Method2.Narrow != 0 || result.Records[102272].Method1.Narrow != 0 {
		t.Error("Expected exempt facility to receive no narrow-specialist budget")
	}
	if rec.PeopleNarrow != 40000 {
		t.Errorf("Expected narrow population 40000, got %f", rec.PeopleNarrow)
	}
}

func TestReplicate_DirectRateConservesPools(t *testing.T) {
	cfg := DefaultConfig()
	result := NewReplicator(cfg, entities.DefaultOverrides(), nil).Replicate(sample(), nil)

	totals := result.Totals[MethodDirectRate]
	if !relativeEqual(totals.Narrow, cfg.NarrowPool.InexactFloat64(), 1e-9) {
		t.Errorf("Expected narrow total %s, got %f", cfg.NarrowPool, totals.Narrow)
	}
	if !relativeEqual(totals.Family, cfg.FamilyPool.InexactFloat64(), 1e-9) {
		t.Errorf("Expected family total %s, got %f", cfg.FamilyPool, totals.Family)
	}

	rec := result.Records[200]
	if !relativeEqual(rec.Method2.Deviation, -1+rec.Method2.Total/1500000000, 1e-12) {
		t.Errorf("Unexpected deviation %f", rec.Method2.Deviation)
	}
	if len(result.Histogram) == 0 {
		t.Error("Expected a deviation histogram")
	}
}

func TestReplicate_MethodsDiverge(t *testing.T) {
	result := NewReplicator(DefaultConfig(), entities.DefaultOverrides(), nil).Replicate(sample(), nil)

	if len(result.Failures) != 0 {
		t.Fatalf("Unexpected failures: %v", result.Failures)
	}

	rec := result.Records[100]
	if relativeEqual(rec.Method1.Total, rec.Method2.Total, 1e-9) {
		t.Error("Expected base-rate and direct-rate allocations to differ")
	}

	// the base rate is the pool over the averaged weighted population
	var sumNarrow float64
	for _, r := range result.Records {
		sumNarrow += r.PeopleNarrow
	}
	rate := DefaultNarrowPool.InexactFloat64() / (sumNarrow * result.WeightedGeokOldNS)
	if !relativeEqual(result.Totals[MethodBaseRate].NarrowRate, rate, 1e-12) {
		t.Errorf("Expected base narrow rate %f, got %f", rate, result.Totals[MethodBaseRate].NarrowRate)
	}
}

func TestReplicate_RosterInsuredTakesPrecedence(t *testing.T) {
	roster := []*entities.Facility{{Code: 100, Insured: 0}}

	result := NewReplicator(DefaultConfig(), entities.PolicyOverrides{}, nil).Replicate(sample(), roster)

	if result.Records[100].Insured != 0 || result.Records[100].Prefk != 1 {
		t.Errorf("Expected roster insured 0 and prefk 1, got %+v", result.Records[100])
	}
	if result.Records[200].Insured != 5000 {
		t.Errorf("Expected merged insured fallback, got %f", result.Records[200].Insured)
	}
}

func TestReplicate_ZeroPeopleIsAnomalous(t *testing.T) {
	input := sample()
	input[300] = mergedRecord(300, 0, 0, 0, 1, 1, 1000)

	result := NewReplicator(DefaultConfig(), entities.PolicyOverrides{}, nil).Replicate(input, nil)

	if result.Records[300].Prefk != 1 {
		t.Errorf("Expected prefk 1, got %f", result.Records[300].Prefk)
	}
	if result.Report.Anomalies != 1 {
		t.Errorf("Expected 1 anomaly, got %d", result.Report.Anomalies)
	}
}

func TestReplicate_ZeroDenominatorFailsOneMethod(t *testing.T) {
	input := map[entities.FacilityCode]*entities.MergedRecord{
		1: mergedRecord(1, 1000, 0, 0, 1.1, 1.0, 100),
	}

	result := NewReplicator(DefaultConfig(), entities.PolicyOverrides{}, nil).Replicate(input, nil)

	if !errors.Is(result.Failures[MethodBaseRate], entities.ErrDivisionByZero) {
		t.Errorf("Expected base-rate failure on zero total population, got %v", result.Failures[MethodBaseRate])
	}
	if _, failed := result.Failures[MethodDirectRate]; failed {
		t.Errorf("Expected direct-rate method to succeed, got %v", result.Failures[MethodDirectRate])
	}
	if !relativeEqual(result.Records[1].Method2.Total, DefaultNarrowPool.InexactFloat64()+DefaultFamilyPool.InexactFloat64(), 1e-9) {
		t.Errorf("Expected single facility to receive both pools, got %f", result.Records[1].Method2.Total)
	}
}
