package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// Expected headers, in column order
var (
	populationVisitsHeader = []string{
		"facility_code", "legacy_code", "region", "district", "region_code", "district_code",
		"short_name", "full_name", "age", "men", "women", "visits_men", "visits_women", "insured",
	}
	districtsHeader = []string{"district_code", "altitude", "density", "rural", "smalltown"}
	transfersHeader = []string{"facility_code", "origin_1", "origin_2", "destination"}
	budgetsHeader   = []string{"facility_code", "budget", "primary_care", "total_population", "geok_old_gsv"}
)

// Loader handles loading pipeline inputs from CSV files
type Loader struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadPopulationVisits loads raw population and visit rows
func (l *Loader) LoadPopulationVisits(filename string) ([]*entities.PopulationVisitRow, error) {
	records, err := l.readTable(filename, "population visits", populationVisitsHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]*entities.PopulationVisitRow, 0, len(records))
	for i, record := range records {
		row, err := parsePopulationVisitRow(record)
		if err != nil {
			return nil, fmt.Errorf("population visits CSV row %d: %w", i+2, err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// LoadDistricts loads the district geography table
func (l *Loader) LoadDistricts(filename string) ([]*entities.DistrictGeography, error) {
	records, err := l.readTable(filename, "districts", districtsHeader)
	if err != nil {
		return nil, err
	}

	districts := make([]*entities.DistrictGeography, 0, len(records))
	for i, record := range records {
		code, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("districts CSV row %d: invalid district_code: %s", i+2, record[0])
		}

		values, err := parseFloats(record[1:], districtsHeader[1:])
		if err != nil {
			return nil, fmt.Errorf("districts CSV row %d: %w", i+2, err)
		}

		districts = append(districts, &entities.DistrictGeography{
			District:  entities.DistrictCode(code),
			Altitude:  values[0],
			Density:   values[1],
			Rural:     values[2],
			Smalltown: values[3],
		})
	}

	return districts, nil
}

// LoadTransfers loads inter-facility transfer links; empty cells mean no link
func (l *Loader) LoadTransfers(filename string) ([]*entities.TransferLink, error) {
	records, err := l.readTable(filename, "transfers", transfersHeader)
	if err != nil {
		return nil, err
	}

	links := make([]*entities.TransferLink, 0, len(records))
	for i, record := range records {
		code, err := parseCode(record[0])
		if err != nil {
			return nil, fmt.Errorf("transfers CSV row %d: %w", i+2, err)
		}

		var parsed [3]*entities.FacilityCode
		for j := range parsed {
			parsed[j], err = parseOptionalCode(record[j+1])
			if err != nil {
				return nil, fmt.Errorf("transfers CSV row %d: invalid %s: %w", i+2, transfersHeader[j+1], err)
			}
		}

		links = append(links, &entities.TransferLink{
			Code: code,
			Links: entities.TransferLinks{
				OriginPrimary:   parsed[0],
				OriginSecondary: parsed[1],
				Destination:     parsed[2],
			},
		})
	}

	return links, nil
}

// LoadBudgets loads the prior-year budget table (amounts in thousands)
func (l *Loader) LoadBudgets(filename string) ([]*entities.PriorBudget, error) {
	records, err := l.readTable(filename, "budgets", budgetsHeader)
	if err != nil {
		return nil, err
	}

	budgets := make([]*entities.PriorBudget, 0, len(records))
	for i, record := range records {
		budget, err := parseBudget(record)
		if err != nil {
			return nil, fmt.Errorf("budgets CSV row %d: %w", i+2, err)
		}
		budgets = append(budgets, &budget)
	}

	return budgets, nil
}

// readTable opens a CSV file, validates its header and returns the data rows
func (l *Loader) readTable(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if l.Comma != 0 {
		reader.Comma = l.Comma
	}
	reader.FieldsPerRecord = len(expectedHeader)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, records[0])
	}

	return records[1:], nil
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(actual[i], "\ufeff"))) != col {
			return false
		}
	}

	return true
}

func parsePopulationVisitRow(record []string) (entities.PopulationVisitRow, error) {
	code, err := parseCode(record[0])
	if err != nil {
		return entities.PopulationVisitRow{}, err
	}

	legacyCode, err := parseOptionalInt(record[1])
	if err != nil {
		return entities.PopulationVisitRow{}, fmt.Errorf("invalid legacy_code: %s", record[1])
	}

	regionCode, err := parseOptionalInt(record[4])
	if err != nil {
		return entities.PopulationVisitRow{}, fmt.Errorf("invalid region_code: %s", record[4])
	}

	districtCode, err := parseOptionalInt(record[5])
	if err != nil {
		return entities.PopulationVisitRow{}, fmt.Errorf("invalid district_code: %s", record[5])
	}

	age, err := strconv.Atoi(strings.TrimSpace(record[8]))
	if err != nil || age < 0 || age > entities.MaxAge {
		return entities.PopulationVisitRow{}, fmt.Errorf("invalid age: %s (expected 0-%d)", record[8], entities.MaxAge)
	}

	counts, err := parseFloats(record[9:], populationVisitsHeader[9:])
	if err != nil {
		return entities.PopulationVisitRow{}, err
	}
	for i, v := range counts {
		if v < 0 {
			return entities.PopulationVisitRow{}, fmt.Errorf("%s cannot be negative, got %s", populationVisitsHeader[9+i], record[9+i])
		}
	}

	return entities.PopulationVisitRow{
		Facility: entities.Facility{
			Code:         code,
			LegacyCode:   int(legacyCode),
			Region:       strings.TrimSpace(record[2]),
			District:     strings.TrimSpace(record[3]),
			RegionCode:   regionCode,
			DistrictCode: entities.DistrictCode(districtCode),
			ShortName:    strings.TrimSpace(record[6]),
			FullName:     strings.TrimSpace(record[7]),
		},
		Age:         age,
		Men:         counts[0],
		Women:       counts[1],
		VisitsMen:   counts[2],
		VisitsWomen: counts[3],
		Insured:     counts[4],
	}, nil
}

func parseBudget(record []string) (entities.PriorBudget, error) {
	code, err := parseCode(record[0])
	if err != nil {
		return entities.PriorBudget{}, err
	}

	budget, err := parseDecimal(record[1])
	if err != nil {
		return entities.PriorBudget{}, fmt.Errorf("invalid budget: %s", record[1])
	}

	primaryCare, err := parseDecimal(record[2])
	if err != nil {
		return entities.PriorBudget{}, fmt.Errorf("invalid primary_care: %s", record[2])
	}

	values, err := parseFloats(record[3:], budgetsHeader[3:])
	if err != nil {
		return entities.PriorBudget{}, err
	}

	return entities.PriorBudget{
		Code:            code,
		Budget:          budget,
		PrimaryCare:     primaryCare,
		TotalPopulation: values[0],
		GeokOldGSV:      values[1],
	}, nil
}

func parseCode(s string) (entities.FacilityCode, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid facility_code: %s", s)
	}
	return entities.FacilityCode(code), nil
}

// parseOptionalCode accepts spreadsheet-style "102272.0" and treats empty or
// non-positive values as no link
func parseOptionalCode(s string) (*entities.FacilityCode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if v <= 0 {
		return nil, nil
	}
	return entities.CodePtr(entities.FacilityCode(v)), nil
}

func parseOptionalInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// parseDecimal treats an empty cell as zero
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseFloats treats empty cells as zero
func parseFloats(fields, names []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", names[i], field)
		}
		values[i] = v
	}
	return values, nil
}
