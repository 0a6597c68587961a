// Package merge attaches district geography, transfer links and prior-year
// budgets to workload records.
package merge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vsinha/capitation/pkg/application/services/shared"
	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/domain/repositories"
)

// StageName identifies this stage in reports and logs
const StageName = "merge"

// Result holds the merged records of every facility that has a budget
type Result struct {
	Records map[entities.FacilityCode]*entities.MergedRecord
	Report  *entities.StageReport

	MissingDistricts   int
	MissingBudgets     int
	ZeroBudgets        int
	WeightedGeokOldNS  float64
	WeightedGeokOldGSV float64
}

// Merger joins workload records against the lookup repositories
type Merger struct {
	geography repositories.GeographyRepository
	transfers repositories.TransferRepository
	budgets   repositories.BudgetRepository
	logger    *slog.Logger
}

// NewMerger creates a new merger; a nil logger uses slog.Default()
func NewMerger(
	geography repositories.GeographyRepository,
	transfers repositories.TransferRepository,
	budgets repositories.BudgetRepository,
	logger *slog.Logger,
) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{geography: geography, transfers: transfers, budgets: budgets, logger: logger}
}

// Merge runs the density join, the transfer-link join and the budget inner
// join in that order. Facilities without a budget or with a zero
// primary-care budget are dropped from every later stage.
func (m *Merger) Merge(workload map[entities.FacilityCode]*entities.WorkloadRecord) (*Result, error) {
	report := entities.NewStageReport(StageName)
	result := &Result{
		Records: make(map[entities.FacilityCode]*entities.MergedRecord, len(workload)),
		Report:  report,
	}

	var nsValues, gsvValues, weights []float64
	for _, code := range entities.SortedCodes(workload) {
		w := workload[code]
		report.Processed++

		record := &entities.MergedRecord{
			Facility:    w.Facility,
			Workload:    w.Workload,
			People:      w.People,
			Coefficient: w.Coefficient,
			Adjusted:    w.Adjusted,
			UpMax:       w.UpMax,
			DownMax:     w.DownMax,
		}

		district, err := m.geography.GetDistrict(w.Facility.DistrictCode)
		switch {
		case err == nil:
			record.Altitude = district.Altitude
			record.Density = district.Density
			record.Rural = district.Rural
			record.Smalltown = district.Smalltown
		case errors.Is(err, entities.ErrMissingJoinKey):
			result.MissingDistricts++
			report.Warn("facility %s: %v", code, err)
			m.logger.Warn("merge: district not found", "facility", code, "district", w.Facility.DistrictCode)
		default:
			return nil, fmt.Errorf("failed to look up district for facility %s: %w", code, err)
		}

		if links, ok := m.transfers.GetLinks(code); ok {
			record.Links = links
		}

		budget, err := m.budgets.GetBudget(code)
		switch {
		case err == nil:
		case errors.Is(err, entities.ErrMissingJoinKey):
			result.MissingBudgets++
			report.Dropped++
			report.Warn("facility %s dropped: missing budget", code)
			m.logger.Debug("merge: facility dropped, missing budget", "facility", code)
			continue
		default:
			return nil, fmt.Errorf("failed to look up budget for facility %s: %w", code, err)
		}
		if budget.PrimaryCare.IsZero() {
			result.ZeroBudgets++
			report.Dropped++
			report.Warn("facility %s dropped: zero primary-care budget", code)
			m.logger.Debug("merge: facility dropped, zero primary-care budget", "facility", code)
			continue
		}

		record.Budget = budget.Budget
		record.PrimaryCare = budget.PrimaryCare
		record.TotalPopulation = budget.TotalPopulation
		record.GeokOldGSV = budget.GeokOldGSV
		record.GeokOldNS = entities.LegacyNarrowCoefficient(record.Altitude, record.Smalltown, record.Rural)
		record.GeokOld = entities.LegacyCoefficient(record.GeokOldGSV, record.GeokOldNS)

		result.Records[code] = record
		nsValues = append(nsValues, record.GeokOldNS)
		gsvValues = append(gsvValues, record.GeokOldGSV)
		weights = append(weights, record.TotalPopulation)
	}

	if len(result.Records) > 0 {
		ns, errNS := shared.WeightedMean(nsValues, weights)
		gsv, errGSV := shared.WeightedMean(gsvValues, weights)
		if err := errors.Join(errNS, errGSV); err != nil {
			report.Warn("weighted legacy coefficients: %v", err)
		} else {
			result.WeightedGeokOldNS = ns
			result.WeightedGeokOldGSV = gsv
		}
	} else {
		report.Warn("no facility survived the budget join")
	}

	m.logger.Info("merge: joined",
		"facilities", len(result.Records),
		"missing_districts", result.MissingDistricts,
		"missing_budgets", result.MissingBudgets,
		"zero_budgets", result.ZeroBudgets,
		"weighted_geok_old_ns", result.WeightedGeokOldNS,
		"weighted_geok_old_gsv", result.WeightedGeokOldGSV,
	)

	return result, nil
}
