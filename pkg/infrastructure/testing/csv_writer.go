package testing

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// Sample input file names, matching the policy file defaults
const (
	PopulationVisitsFile = "population_visits.csv"
	DistrictsFile        = "districts.csv"
	TransfersFile        = "transfers.csv"
	BudgetsFile          = "budgets.csv"
)

// WriteSampleInputs writes the sample dataset as the four CSV inputs into dir
func WriteSampleInputs(dir string) error {
	ds := BuildSampleDataset()

	population := [][]string{{
		"facility_code", "legacy_code", "region", "district", "region_code", "district_code",
		"short_name", "full_name", "age", "men", "women", "visits_men", "visits_women", "insured",
	}}
	for _, r := range ds.Rows {
		population = append(population, []string{
			r.Facility.Code.String(), "", r.Facility.Region, r.Facility.District, "",
			strconv.FormatInt(int64(r.Facility.DistrictCode), 10),
			r.Facility.ShortName, r.Facility.FullName, strconv.Itoa(r.Age),
			formatFloat(r.Men), formatFloat(r.Women), formatFloat(r.VisitsMen), formatFloat(r.VisitsWomen),
			formatFloat(r.Insured),
		})
	}

	districts := [][]string{{"district_code", "altitude", "density", "rural", "smalltown"}}
	for _, d := range SampleDistricts() {
		districts = append(districts, []string{
			strconv.FormatInt(int64(d.District), 10),
			formatFloat(d.Altitude), formatFloat(d.Density), formatFloat(d.Rural), formatFloat(d.Smalltown),
		})
	}

	transfers := [][]string{{"facility_code", "origin_1", "origin_2", "destination"}}
	for _, l := range SampleLinks() {
		transfers = append(transfers, []string{
			l.Code.String(),
			formatCode(l.Links.OriginPrimary), formatCode(l.Links.OriginSecondary), formatCode(l.Links.Destination),
		})
	}

	budgets := [][]string{{"facility_code", "budget", "primary_care", "total_population", "geok_old_gsv"}}
	for _, b := range SampleBudgets() {
		budgets = append(budgets, []string{
			b.Code.String(), b.Budget.String(), b.PrimaryCare.String(),
			formatFloat(b.TotalPopulation), formatFloat(b.GeokOldGSV),
		})
	}

	for name, records := range map[string][][]string{
		PopulationVisitsFile: population,
		DistrictsFile:        districts,
		TransfersFile:        transfers,
		BudgetsFile:          budgets,
	} {
		if err := writeCSV(filepath.Join(dir, name), records); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(filename string, records [][]string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatCode(code *entities.FacilityCode) string {
	if code == nil {
		return ""
	}
	return code.String()
}
