package coefficients

import (
	"errors"
	"math"
	"testing"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// scenarioDemographics is a single facility with ages 0-2
func scenarioDemographics() entities.Demographics {
	d := entities.NewDemographics()
	for age, v := range map[int]float64{0: 50, 1: 60, 2: 40} {
		d.MalePopulation.Add(age, 100, v)
	}
	for age, v := range map[int]float64{0: 100, 1: 30, 2: 20} {
		d.MaleVisits.Add(age, 100, v)
	}
	for age, v := range map[int]float64{0: 55, 1: 58, 2: 42} {
		d.FemalePopulation.Add(age, 100, v)
	}
	for age, v := range map[int]float64{0: 90, 1: 35, 2: 25} {
		d.FemaleVisits.Add(age, 100, v)
	}
	return d
}

func TestAgeSexCalculator_Scenario(t *testing.T) {
	coeffs, report, err := NewAgeSexCalculator(nil).Calculate(scenarioDemographics())
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if !approxEqual(coeffs.VisitsPerCapita, 300.0/305.0, 1e-12) {
		t.Errorf("Expected visits per capita 300/305, got %f", coeffs.VisitsPerCapita)
	}
	if !approxEqual(coeffs.Male[0], 2.0/(300.0/305.0), 1e-12) || !approxEqual(coeffs.Male[0], 2.033, 1e-3) {
		t.Errorf("Expected male age-0 coefficient about 2.033, got %f", coeffs.Male[0])
	}
	if len(coeffs.Male) != 3 || len(coeffs.Female) != 3 {
		t.Errorf("Expected 3 ages per sex, got %d male and %d female", len(coeffs.Male), len(coeffs.Female))
	}
	if _, ok := coeffs.Male[3]; ok {
		t.Error("Expected ages without population to be omitted")
	}
	if report.Processed != 6 {
		t.Errorf("Expected 6 coefficients, got %d", report.Processed)
	}
}

func TestAgeSexCalculator_Normalization(t *testing.T) {
	d := scenarioDemographics()
	d.MalePopulation.Add(5, 200, 12)
	d.MaleVisits.Add(5, 200, 3)
	d.FemalePopulation.Add(40, 200, 80)
	d.FemaleVisits.Add(40, 200, 120)

	coeffs, _, err := NewAgeSexCalculator(nil).Calculate(d)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	var weighted, population float64
	for _, sex := range []entities.Sex{entities.Male, entities.Female} {
		for age, coef := range coeffs.For(sex) {
			pop := d.Population(sex).AgeTotal(age)
			weighted += pop * coef
			population += pop
		}
	}
	if !approxEqual(weighted/population, 1.0, 1e-9) {
		t.Errorf("Expected population-weighted mean coefficient 1.0, got %.12f", weighted/population)
	}
}

func TestAgeSexCalculator_ZeroPopulationAgeOmitted(t *testing.T) {
	d := scenarioDemographics()
	d.MalePopulation.Add(7, 100, 0)
	d.MaleVisits.Add(7, 100, 4)

	coeffs, _, err := NewAgeSexCalculator(nil).Calculate(d)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if _, ok := coeffs.Male[7]; ok {
		t.Error("Expected zero-population age to have no coefficient")
	}

	pairs := coeffs.Combined()
	if pairs[7].HasMale || pairs[7].HasFemale {
		t.Errorf("Expected age 7 to have no coefficients, got %+v", pairs[7])
	}
	if !pairs[0].HasMale || !pairs[0].HasFemale {
		t.Errorf("Expected age 0 to have both coefficients, got %+v", pairs[0])
	}
}

func TestAgeSexCalculator_ZeroTotalPopulation(t *testing.T) {
	_, _, err := NewAgeSexCalculator(nil).Calculate(entities.NewDemographics())
	if !errors.Is(err, entities.ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero, got %v", err)
	}
}
