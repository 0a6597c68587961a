package coefficients

import (
	"log/slog"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// WorkloadStageName identifies the workload stage in reports and logs
const WorkloadStageName = "workload_coefficients"

// Accepted bounds and defaults for the workload clamp
const (
	DefaultUpMax   = 1.30
	DefaultDownMax = 0.70

	UpMaxLower   = 1.0
	UpMaxUpper   = 1.25
	DownMaxLower = 0.75
	DownMaxUpper = 1.0
)

// WorkloadConfig holds the clamp bounds applied to each facility coefficient
type WorkloadConfig struct {
	UpMax   float64
	DownMax float64
}

// DefaultWorkloadConfig returns the configured policy defaults
func DefaultWorkloadConfig() WorkloadConfig {
	return WorkloadConfig{UpMax: DefaultUpMax, DownMax: DefaultDownMax}
}

// NormalizeBounds replaces out-of-band bounds with the band edge furthest
// from 1, returning a *entities.RangeError per replaced bound.
func NormalizeBounds(upMax, downMax float64) (float64, float64, []error) {
	var errs []error
	if upMax < UpMaxLower || upMax > UpMaxUpper {
		errs = append(errs, &entities.RangeError{
			Parameter: "up_max", Value: upMax, Min: UpMaxLower, Max: UpMaxUpper, Applied: UpMaxUpper,
		})
		upMax = UpMaxUpper
	}
	if downMax < DownMaxLower || downMax > DownMaxUpper {
		errs = append(errs, &entities.RangeError{
			Parameter: "down_max", Value: downMax, Min: DownMaxLower, Max: DownMaxUpper, Applied: DownMaxLower,
		})
		downMax = DownMaxLower
	}
	return upMax, downMax, errs
}

// WorkloadCalculator computes population-weighted demand per facility
type WorkloadCalculator struct {
	config    WorkloadConfig
	overrides entities.PolicyOverrides
	logger    *slog.Logger
}

// NewWorkloadCalculator creates a new calculator; a nil logger uses slog.Default()
func NewWorkloadCalculator(config WorkloadConfig, overrides entities.PolicyOverrides, logger *slog.Logger) *WorkloadCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkloadCalculator{config: config, overrides: overrides, logger: logger}
}

// Calculate returns one workload record per facility present in either
// population pivot. A facility without population gets coefficient 0 and is
// flagged anomalous.
func (c *WorkloadCalculator) Calculate(
	d entities.Demographics,
	coeffs *entities.AgeSexCoefficients,
	roster []*entities.Facility,
) (map[entities.FacilityCode]*entities.WorkloadRecord, *entities.StageReport, error) {
	report := entities.NewStageReport(WorkloadStageName)

	upMax, downMax, rangeErrs := NormalizeBounds(c.config.UpMax, c.config.DownMax)
	for _, rangeErr := range rangeErrs {
		report.WarnErr(rangeErr)
		c.logger.Warn("workload_coefficients: bound clamped", "error", rangeErr)
	}

	codes := d.MalePopulation.Codes()
	for code := range d.FemalePopulation.Codes() {
		codes[code] = struct{}{}
	}

	byCode := make(map[entities.FacilityCode]*entities.Facility, len(roster))
	for _, f := range roster {
		byCode[f.Code] = f
	}

	records := make(map[entities.FacilityCode]*entities.WorkloadRecord, len(codes))
	var clampedUp, clampedDown, unchanged, unnamed int
	for _, code := range entities.SortedCodes(codes) {
		record := &entities.WorkloadRecord{
			Facility: entities.Facility{Code: code},
			UpMax:    upMax,
			DownMax:  downMax,
		}

		for _, sex := range []entities.Sex{entities.Male, entities.Female} {
			population := d.Population(sex)
			factors := coeffs.For(sex)
			for age := 0; age <= entities.MaxAge; age++ {
				pop, ok := population.Get(age, code)
				if !ok {
					continue
				}
				coef, ok := factors[age]
				if !ok {
					continue
				}
				record.Workload += pop * coef
				record.People += pop
			}
		}

		if record.People > 0 {
			record.Coefficient = record.Workload / record.People
		} else {
			record.Anomalous = true
			report.Anomalies++
			report.Warn("facility %s has no population, coefficient set to 0", code)
			c.logger.Warn("workload_coefficients: facility without population", "facility", code)
		}

		record.Adjusted = entities.Clamp(record.Coefficient, downMax, upMax)
		switch {
		case record.Coefficient > upMax:
			clampedDown++
		case record.Coefficient < downMax:
			clampedUp++
		default:
			unchanged++
		}

		if f, ok := byCode[code]; ok {
			record.Facility = *f
			record.Named = true
			if override, ok := c.overrides.WorkloadRoster[code]; ok {
				override.Apply(&record.Facility)
			}
		} else {
			unnamed++
			report.Warn("facility %s missing from roster", code)
			c.logger.Warn("workload_coefficients: facility missing from roster", "facility", code)
		}

		records[code] = record
		report.Processed++
	}

	c.logger.Info("workload_coefficients: calculated",
		"facilities", len(records),
		"up_max", upMax,
		"down_max", downMax,
		"clamped_up", clampedUp,
		"clamped_down", clampedDown,
		"unchanged", unchanged,
		"unnamed", unnamed,
		"anomalous", report.Anomalies,
	)

	return records, report, nil
}
