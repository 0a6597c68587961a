// Package demographics turns raw population and visit rows into per-age,
// per-sex pivots and the facility roster.
package demographics

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// StageName identifies this stage in reports and logs
const StageName = "demographics"

// ErrNoRows is returned when there is nothing to aggregate
var ErrNoRows = errors.New("no population rows to aggregate")

// Result is the aggregated demographic profile and roster
type Result struct {
	Demographics entities.Demographics
	Roster       []*entities.Facility
	Report       *entities.StageReport
}

type groupKey struct {
	code entities.FacilityCode
	age  int
}

type group struct {
	men, women, visitsMen, visitsWomen, insured float64
}

// Aggregator groups raw rows and applies the roster policy overrides
type Aggregator struct {
	overrides entities.PolicyOverrides
	logger    *slog.Logger
}

// NewAggregator creates a new aggregator; a nil logger uses slog.Default()
func NewAggregator(overrides entities.PolicyOverrides, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{overrides: overrides, logger: logger}
}

// Aggregate remaps and groups rows by facility and age, drops excluded
// facilities and builds the four pivots. After aggregation age bucket 99
// holds the cumulative 0-99 total of each facility.
func (a *Aggregator) Aggregate(rows []*entities.PopulationVisitRow) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	report := entities.NewStageReport(StageName)
	report.Processed = len(rows)

	groups := make(map[groupKey]*group)
	metadata := make(map[entities.FacilityCode]entities.Facility)
	for _, row := range rows {
		if row.Age < 0 || row.Age > entities.MaxAge {
			return nil, fmt.Errorf("facility %s: age %d outside 0-%d", row.Facility.Code, row.Age, entities.MaxAge)
		}

		code := a.overrides.Remap(row.Facility.Code)
		if _, seen := metadata[code]; !seen {
			f := row.Facility
			f.Code = code
			f.Insured = 0
			metadata[code] = f
		}

		key := groupKey{code: code, age: row.Age}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.men += row.Men
		g.women += row.Women
		g.visitsMen += row.VisitsMen
		g.visitsWomen += row.VisitsWomen
		g.insured += row.Insured
	}

	for code, override := range a.overrides.AggregationRoster {
		if f, ok := metadata[code]; ok {
			override.Apply(&f)
			metadata[code] = f
		}
	}

	dropped := make(map[entities.FacilityCode]bool)
	for code, f := range metadata {
		if a.overrides.IsExcluded(f) {
			dropped[code] = true
		}
	}
	for _, code := range entities.SortedCodes(metadata) {
		if dropped[code] {
			report.Dropped++
			report.Warn("facility %s excluded by policy", code)
			a.logger.Debug("demographics: facility excluded", "facility", code)
			delete(metadata, code)
		}
	}

	d := entities.NewDemographics()
	for key, g := range groups {
		if dropped[key.code] {
			continue
		}
		d.MalePopulation.Add(key.age, key.code, g.men)
		d.FemalePopulation.Add(key.age, key.code, g.women)
		d.MaleVisits.Add(key.age, key.code, g.visitsMen)
		d.FemaleVisits.Add(key.age, key.code, g.visitsWomen)

		f := metadata[key.code]
		f.Insured += g.insured
		metadata[key.code] = f
	}

	for _, p := range []entities.Pivot{d.MalePopulation, d.FemalePopulation, d.MaleVisits, d.FemaleVisits} {
		accumulateLastBucket(p)
	}

	roster := make([]*entities.Facility, 0, len(metadata))
	for _, code := range entities.SortedCodes(metadata) {
		f := metadata[code]
		roster = append(roster, &f)
	}

	a.logger.Info("demographics: aggregated",
		"rows", len(rows),
		"facilities", len(roster),
		"dropped", report.Dropped,
	)

	return &Result{Demographics: d, Roster: roster, Report: report}, nil
}

// accumulateLastBucket overwrites bucket MaxAge with the per-facility sum of
// buckets 0..MaxAge
func accumulateLastBucket(p entities.Pivot) {
	totals := make(map[entities.FacilityCode]float64)
	for age := 0; age <= entities.MaxAge; age++ {
		for code, v := range p[age] {
			totals[code] += v
		}
	}
	for code, total := range totals {
		row, ok := p[entities.MaxAge]
		if !ok {
			row = make(map[entities.FacilityCode]float64)
			p[entities.MaxAge] = row
		}
		row[code] = total
	}
}
