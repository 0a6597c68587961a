package simulation

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

func merged(code entities.FacilityCode, region string, people, adjusted, primaryCare float64, links entities.TransferLinks) *entities.MergedRecord {
	return &entities.MergedRecord{
		Facility:    entities.Facility{Code: code, Region: region},
		People:      people,
		Adjusted:    adjusted,
		Altitude:    1.1,
		Rural:       1.05,
		Density:     float64(code) * 10,
		Smalltown:   1,
		Links:       links,
		PrimaryCare: decimal.NewFromFloat(primaryCare),
		GeokOldGSV:  1.1,
		GeokOldNS:   1.15,
		GeokOld:     entities.LegacyCoefficient(1.1, 1.15),
	}
}

func sampleMerged() map[entities.FacilityCode]*entities.MergedRecord {
	return map[entities.FacilityCode]*entities.MergedRecord{
		1: merged(1, "North", 1000, 1.1, 500, entities.TransferLinks{Destination: entities.CodePtr(2)}),
		2: merged(2, "North", 3000, 0.9, 1200, entities.TransferLinks{OriginPrimary: entities.CodePtr(1), OriginSecondary: entities.CodePtr(3)}),
		3: merged(3, "South", 2000, 1.0, 800, entities.TransferLinks{Destination: entities.CodePtr(2)}),
		9: merged(9, "South", 1500, 1.2, 600, entities.TransferLinks{}),
	}
}

func relativeEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func TestSimulate_ConservesTotalBudget(t *testing.T) {
	result := NewSimulator(DefaultConfig(), entities.PolicyOverrides{}, nil).Simulate(sampleMerged(), entities.KnownVariants())

	if len(result.Failures) != 0 {
		t.Fatalf("Expected no failures, got %v", result.Failures)
	}

	for _, v := range entities.KnownVariants() {
		summary := result.Summaries[v]
		total := summary.TotalBudget.InexactFloat64()
		if total != 3100000 {
			t.Errorf("Variant %s: expected total budget 3100000, got %f", v, total)
		}

		var rawSum, newSum float64
		for _, r := range result.Records {
			b := r.Budgets[v]
			rawSum += b.Raw
			newSum += b.New
			if !relativeEqual(b.New, b.Raw-b.Subtract+b.Add1+b.Add2, 1e-12) {
				t.Errorf("Variant %s facility %s: new budget identity violated", v, r.Facility.Code)
			}
		}
		if !relativeEqual(rawSum, total, 1e-6) {
			t.Errorf("Variant %s: raw budgets sum to %f, expected %f", v, rawSum, total)
		}
		if !relativeEqual(newSum, total, 1e-6) {
			t.Errorf("Variant %s: corrected budgets sum to %f, expected %f", v, newSum, total)
		}
	}
}

func TestSimulate_ReassignmentReadsRawSnapshot(t *testing.T) {
	result := NewSimulator(DefaultConfig(), entities.PolicyOverrides{}, nil).Simulate(sampleMerged(), []entities.Variant{entities.Variant1})

	r1 := result.Records[1].Budgets[entities.Variant1]
	r2 := result.Records[2].Budgets[entities.Variant1]
	r3 := result.Records[3].Budgets[entities.Variant1]

	if !relativeEqual(r1.Subtract, r1.Raw*0.25, 1e-12) {
		t.Errorf("Expected subtract of 25%% raw, got %f of %f", r1.Subtract, r1.Raw)
	}
	if !relativeEqual(r2.Add1, r1.Raw*0.25, 1e-12) || !relativeEqual(r2.Add2, r3.Raw*0.25, 1e-12) {
		t.Errorf("Expected additions from origin raw budgets, got %f and %f", r2.Add1, r2.Add2)
	}
	if r2.Subtract != 0 {
		t.Errorf("Expected no subtract without destination, got %f", r2.Subtract)
	}

	prior := result.Records[2].PriorBudget
	if !relativeEqual(r2.Impact, (r2.New/prior-1)*100, 1e-12) {
		t.Errorf("Unexpected impact %f", r2.Impact)
	}
}

func TestSimulate_GeographicCoefficients(t *testing.T) {
	result := NewSimulator(DefaultConfig(), entities.PolicyOverrides{}, nil).Simulate(sampleMerged(), nil)

	r := result.Records[1]
	if !relativeEqual(r.Geok1, 1.15, 1e-12) || r.Geok2 != 1.1 {
		t.Errorf("Unexpected geok_1/geok_2: %f/%f", r.Geok1, r.Geok2)
	}
	if r.Geok3 != entities.SparseDensityGeok {
		t.Errorf("Expected sparse geok_3 for density 10, got %f", r.Geok3)
	}
	if result.Records[9].Geok3 != entities.DefaultDensityGeok {
		t.Errorf("Expected default geok_3 for density 90, got %f", result.Records[9].Geok3)
	}
}

func TestSimulate_ScaleDownAppliedOnce(t *testing.T) {
	input := sampleMerged()
	overrides := entities.PolicyOverrides{WorkloadScaleDown: entities.CodePtr(9)}

	result := NewSimulator(DefaultConfig(), overrides, nil).Simulate(input, entities.KnownVariants())

	if !relativeEqual(result.Records[9].Adjusted, 1.2*0.75, 1e-12) {
		t.Errorf("Expected scaled adjusted workload 0.9, got %f", result.Records[9].Adjusted)
	}
	if input[9].Adjusted != 1.2 {
		t.Errorf("Expected merged input untouched, got %f", input[9].Adjusted)
	}
}

func TestSimulate_IsolatesVariantFailures(t *testing.T) {
	input := sampleMerged()
	for _, m := range input {
		m.Altitude = 0
	}

	result := NewSimulator(DefaultConfig(), entities.PolicyOverrides{}, nil).
		Simulate(input, []entities.Variant{entities.Variant2, entities.Variant3, entities.Variant("bogus")})

	if !errors.Is(result.Failures[entities.Variant2], entities.ErrDivisionByZero) {
		t.Errorf("Expected geok_2 to fail with division by zero, got %v", result.Failures[entities.Variant2])
	}
	if result.Failures["bogus"] == nil {
		t.Error("Expected unknown variant to fail")
	}
	if !result.Succeeded(entities.Variant3) {
		t.Fatalf("Expected geok_3 to succeed, failures: %v", result.Failures)
	}
	if _, ok := result.Records[1].Budgets[entities.Variant2]; ok {
		t.Error("Expected no budgets published for a failed variant")
	}
	if len(result.Variants) != 1 {
		t.Errorf("Expected 1 successful variant, got %v", result.Variants)
	}
	if len(result.Requested) != 3 || result.Requested[0] != entities.Variant2 {
		t.Errorf("Expected all 3 requested variants in order, got %v", result.Requested)
	}
}

func TestSimulate_DuplicateVariantRunsOnce(t *testing.T) {
	result := NewSimulator(DefaultConfig(), entities.PolicyOverrides{}, nil).
		Simulate(sampleMerged(), []entities.Variant{entities.Variant1, entities.Variant1})

	if len(result.Variants) != 1 || len(result.Requested) != 1 {
		t.Errorf("Expected variant listed once, got variants %v requested %v", result.Variants, result.Requested)
	}
	if len(result.Report.Warnings) == 0 {
		t.Error("Expected a warning for the repeated variant")
	}
}

func TestSimulate_UnresolvedLinksContributeZero(t *testing.T) {
	input := map[entities.FacilityCode]*entities.MergedRecord{
		1: merged(1, "North", 1000, 1, 100, entities.TransferLinks{OriginPrimary: entities.CodePtr(77)}),
	}

	result := NewSimulator(DefaultConfig(), entities.PolicyOverrides{}, nil).Simulate(input, []entities.Variant{entities.VariantOld})

	b := result.Records[1].Budgets[entities.VariantOld]
	if b.Add1 != 0 {
		t.Errorf("Expected unresolved origin to add nothing, got %f", b.Add1)
	}
	if result.Summaries[entities.VariantOld].UnresolvedLinks != 1 {
		t.Errorf("Expected 1 unresolved link, got %d", result.Summaries[entities.VariantOld].UnresolvedLinks)
	}
	if !relativeEqual(b.Impact, 0, 1e-9) {
		t.Errorf("Expected zero impact for a single facility, got %f", b.Impact)
	}
}

func TestSimulate_RegionTotalsAndHistogram(t *testing.T) {
	result := NewSimulator(DefaultConfig(), entities.PolicyOverrides{}, nil).Simulate(sampleMerged(), []entities.Variant{entities.VariantOld})

	regions := result.RegionTotals[entities.VariantOld]
	if len(regions) != 2 || regions[0].Region != "North" || regions[0].Facilities != 2 {
		t.Fatalf("Unexpected region totals: %+v", regions)
	}
	if regions[0].Prior != 1700000 {
		t.Errorf("Expected North prior 1700000, got %f", regions[0].Prior)
	}

	var counted int
	for _, bin := range result.Histograms[entities.VariantOld] {
		counted += bin.Count
	}
	if counted != 4 {
		t.Errorf("Expected 4 facilities in histogram, got %d", counted)
	}
}
