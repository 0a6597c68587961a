package coefficients

import (
	"errors"
	"testing"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

func TestNormalizeBounds(t *testing.T) {
	tests := []struct {
		name        string
		up, down    float64
		wantUp      float64
		wantDown    float64
		wantWarning int
	}{
		{"defaults are out of band", DefaultUpMax, DefaultDownMax, 1.25, 0.75, 2},
		{"in band", 1.1, 0.9, 1.1, 0.9, 0},
		{"band edges", 1.0, 1.0, 1.0, 1.0, 0},
		{"up below one", 0.9, 0.8, 1.25, 0.8, 1},
		{"down above one", 1.2, 1.1, 1.2, 0.75, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, down, errs := NormalizeBounds(tt.up, tt.down)
			if up != tt.wantUp || down != tt.wantDown {
				t.Errorf("Expected (%g, %g), got (%g, %g)", tt.wantUp, tt.wantDown, up, down)
			}
			if len(errs) != tt.wantWarning {
				t.Errorf("Expected %d warnings, got %d", tt.wantWarning, len(errs))
			}
			for _, err := range errs {
				if !errors.Is(err, entities.ErrConfigurationRange) {
					t.Errorf("Expected ErrConfigurationRange, got %v", err)
				}
			}
		})
	}
}

func TestClampIdempotent(t *testing.T) {
	for _, x := range []float64{-1, 0, 0.5, 0.75, 1, 1.25, 1.45, 10} {
		once := entities.Clamp(x, 0.75, 1.25)
		if twice := entities.Clamp(once, 0.75, 1.25); twice != once {
			t.Errorf("Clamp not idempotent for %g: %g then %g", x, once, twice)
		}
		if once < 0.75 || once > 1.25 {
			t.Errorf("Clamp(%g) = %g outside bounds", x, once)
		}
	}
}

func TestWorkloadCalculator_ClampsCoefficients(t *testing.T) {
	d := entities.NewDemographics()
	d.MalePopulation.Add(0, 1, 10)
	d.MalePopulation.Add(1, 2, 10)
	d.MalePopulation.Add(2, 3, 10)

	coeffs := &entities.AgeSexCoefficients{
		Male:   map[int]float64{0: 1.45, 1: 0.5, 2: 1.0},
		Female: map[int]float64{},
	}

	calc := NewWorkloadCalculator(WorkloadConfig{UpMax: 1.25, DownMax: 0.75}, entities.PolicyOverrides{}, nil)
	records, report, err := calc.Calculate(d, coeffs, nil)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	expected := map[entities.FacilityCode]struct{ coef, adjusted float64 }{
		1: {1.45, 1.25},
		2: {0.5, 0.75},
		3: {1.0, 1.0},
	}
	for code, want := range expected {
		r := records[code]
		if r == nil {
			t.Fatalf("Missing record for facility %s", code)
		}
		if !approxEqual(r.Coefficient, want.coef, 1e-12) {
			t.Errorf("Facility %s: expected coefficient %g, got %g", code, want.coef, r.Coefficient)
		}
		if !approxEqual(r.Adjusted, want.adjusted, 1e-12) {
			t.Errorf("Facility %s: expected adjusted %g, got %g", code, want.adjusted, r.Adjusted)
		}
		if r.Adjusted < r.DownMax || r.Adjusted > r.UpMax {
			t.Errorf("Facility %s: adjusted %g outside [%g, %g]", code, r.Adjusted, r.DownMax, r.UpMax)
		}
		if r.Named {
			t.Errorf("Facility %s: expected unnamed record without roster", code)
		}
	}
	if len(report.Warnings) != 3 {
		t.Errorf("Expected 3 missing-roster warnings, got %v", report.Warnings)
	}
}

func TestWorkloadCalculator_ZeroPopulationIsAnomalous(t *testing.T) {
	d := entities.NewDemographics()
	d.MalePopulation.Add(0, 1, 10)
	d.MalePopulation.Add(0, 2, 0)
	d.FemalePopulation.Add(0, 2, 0)

	coeffs := &entities.AgeSexCoefficients{
		Male:   map[int]float64{0: 1.1},
		Female: map[int]float64{0: 0.9},
	}

	records, report, err := NewWorkloadCalculator(DefaultWorkloadConfig(), entities.PolicyOverrides{}, nil).Calculate(d, coeffs, nil)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	r := records[2]
	if r.Coefficient != 0 || !r.Anomalous {
		t.Errorf("Expected coefficient 0 and anomalous flag, got %+v", r)
	}
	if records[1].Anomalous {
		t.Error("Expected populated facility to be normal")
	}
	if report.Anomalies != 1 {
		t.Errorf("Expected 1 anomaly, got %d", report.Anomalies)
	}
	if r.UpMax != 1.25 || r.DownMax != 0.75 {
		t.Errorf("Expected default bounds clamped to 1.25/0.75, got %g/%g", r.UpMax, r.DownMax)
	}
}

func TestWorkloadCalculator_RosterMerge(t *testing.T) {
	d := entities.NewDemographics()
	d.MalePopulation.Add(0, 927181, 10)
	d.FemalePopulation.Add(0, 927181, 30)

	coeffs := &entities.AgeSexCoefficients{
		Male:   map[int]float64{0: 2},
		Female: map[int]float64{0: 1},
	}
	roster := []*entities.Facility{{Code: 927181, ShortName: "ЦСМ", District: "Карасуйский район", DistrictCode: 1}}

	records, _, err := NewWorkloadCalculator(DefaultWorkloadConfig(), entities.DefaultOverrides(), nil).Calculate(d, coeffs, roster)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	r := records[927181]
	if !r.Named || r.Facility.ShortName != "ЦСМ" {
		t.Errorf("Expected named facility, got %+v", r.Facility)
	}
	if r.Facility.District != "город Ош" || r.Facility.DistrictCode != 41721000000000000 {
		t.Errorf("Expected district override, got %s/%d", r.Facility.District, r.Facility.DistrictCode)
	}
	if roster[0].District != "Карасуйский район" {
		t.Error("Expected input roster to stay untouched")
	}
	if !approxEqual(r.Workload, 50, 1e-12) || !approxEqual(r.People, 40, 1e-12) || !approxEqual(r.Coefficient, 1.25, 1e-12) {
		t.Errorf("Unexpected workload figures: %+v", r)
	}
}
