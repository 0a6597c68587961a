package coefficients

import (
	"fmt"
	"log/slog"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// AgeSexStageName identifies the age-sex stage in reports and logs
const AgeSexStageName = "age_sex_coefficients"

// AgeSexCalculator derives per-age, per-sex visit intensity relative to the
// national average
type AgeSexCalculator struct {
	logger *slog.Logger
}

// NewAgeSexCalculator creates a new calculator; a nil logger uses slog.Default()
func NewAgeSexCalculator(logger *slog.Logger) *AgeSexCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgeSexCalculator{logger: logger}
}

// Calculate returns coefficients for every age bucket with population. Ages
// whose population is zero are omitted rather than zero-filled.
func (c *AgeSexCalculator) Calculate(d entities.Demographics) (*entities.AgeSexCoefficients, *entities.StageReport, error) {
	report := entities.NewStageReport(AgeSexStageName)

	totalVisits := d.MaleVisits.Total() + d.FemaleVisits.Total()
	totalPopulation := d.MalePopulation.Total() + d.FemalePopulation.Total()
	if totalPopulation == 0 {
		return nil, report, fmt.Errorf("total population is zero: %w", entities.ErrDivisionByZero)
	}

	coeffs := &entities.AgeSexCoefficients{
		Male:            make(map[int]float64),
		Female:          make(map[int]float64),
		VisitsPerCapita: totalVisits / totalPopulation,
	}
	if coeffs.VisitsPerCapita == 0 {
		return nil, report, fmt.Errorf("visits per capita is zero: %w", entities.ErrDivisionByZero)
	}

	for _, sex := range []entities.Sex{entities.Male, entities.Female} {
		population := d.Population(sex)
		visits := d.Visits(sex)
		out := coeffs.For(sex)
		for age := 0; age <= entities.MaxAge; age++ {
			agePopulation := population.AgeTotal(age)
			if agePopulation <= 0 {
				continue
			}
			out[age] = visits.AgeTotal(age) / agePopulation / coeffs.VisitsPerCapita
			report.Processed++
		}
	}

	c.logger.Info("age_sex_coefficients: calculated",
		"visits_per_capita", coeffs.VisitsPerCapita,
		"male_ages", len(coeffs.Male),
		"female_ages", len(coeffs.Female),
	)

	return coeffs, report, nil
}
