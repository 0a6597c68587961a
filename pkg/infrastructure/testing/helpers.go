package testing

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/infrastructure/repositories/memory"
)

// Dataset bundles raw rows with loaded lookup repositories
type Dataset struct {
	Rows      []*entities.PopulationVisitRow
	Roster    *memory.RosterRepository
	Geography *memory.GeographyRepository
	Transfers *memory.TransferRepository
	Budgets   *memory.BudgetRepository
}

type sampleFacility struct {
	code      entities.FacilityCode
	name      string
	region    string
	district  entities.DistrictCode
	scale     float64
	intensity float64
	insured   float64
}

var sampleFacilities = []sampleFacility{
	{101, "ЦСМ Аламединского района", "Чуйская область", 41708203000000000, 12, 1.0, 400},
	{102, "ЦСМ Таласского района", "Таласская область", 41707215000000000, 7, 1.3, 250},
	{103, "ЦСМ города Ош", "город Ош", 41721000000000000, 20, 0.8, 900},
	{102272, "Железнодорожная больница", "город Ош", 41721000000000000, 4, 1.1, 60},
	{104, "ФАП без бюджета", "Таласская область", 41707215000000000, 3, 1.0, 10},
	{102412, "Исключенная организация", "Чуйская область", 41708203000000000, 5, 1.0, 10},
}

// BuildSampleDataset builds a small national dataset: five regular
// facilities across three districts, one excluded by policy, one without a
// prior budget, and a reassignment chain into the Osh city facility.
func BuildSampleDataset() *Dataset {
	ds := &Dataset{
		Roster:    memory.NewRosterRepository(len(sampleFacilities)),
		Geography: memory.NewGeographyRepository(),
		Transfers: memory.NewTransferRepository(),
		Budgets:   memory.NewBudgetRepository(len(sampleFacilities)),
	}

	for _, f := range sampleFacilities {
		for age := 0; age < 20; age++ {
			men := f.scale * float64(10+age%7)
			women := f.scale * float64(11+age%5)
			ds.Rows = append(ds.Rows, &entities.PopulationVisitRow{
				Facility: entities.Facility{
					Code:         f.code,
					Region:       f.region,
					DistrictCode: f.district,
					ShortName:    f.name,
					FullName:     f.name,
				},
				Age:         age * 5,
				Men:         men,
				Women:       women,
				VisitsMen:   men * f.intensity * (1 + float64(age%4)*0.25),
				VisitsWomen: women * f.intensity * (1 + float64(age%3)*0.3),
				Insured:     f.insured / 20,
			})
		}
	}

	_ = ds.Geography.LoadDistricts(SampleDistricts())
	_ = ds.Transfers.LoadLinks(SampleLinks())
	_ = ds.Budgets.LoadBudgets(SampleBudgets())

	return ds
}

// SampleDistricts returns the geography rows of the sample dataset
func SampleDistricts() []*entities.DistrictGeography {
	return []*entities.DistrictGeography{
		{District: 41708203000000000, Altitude: 1.05, Density: 120, Rural: 1.1, Smalltown: 1.0},
		{District: 41707215000000000, Altitude: 1.25, Density: 22, Rural: 1.2, Smalltown: 1.1},
		{District: 41721000000000000, Altitude: 1.1, Density: 64, Rural: 1.0, Smalltown: 1.0},
	}
}

// SampleLinks returns the reassignment chain into the Osh city facility
func SampleLinks() []*entities.TransferLink {
	return []*entities.TransferLink{
		{Code: 101, Links: entities.TransferLinks{Destination: entities.CodePtr(103)}},
		{Code: 102272, Links: entities.TransferLinks{Destination: entities.CodePtr(103)}},
		{Code: 103, Links: entities.TransferLinks{
			OriginPrimary:   entities.CodePtr(101),
			OriginSecondary: entities.CodePtr(102272),
		}},
	}
}

// SampleBudgets returns prior budgets for every sample facility except 104
func SampleBudgets() []*entities.PriorBudget {
	return []*entities.PriorBudget{
		budget(101, 5200, 3900, 4300, 1.05),
		budget(102, 3100, 2400, 2500, 1.3),
		budget(103, 8000, 6100, 7100, 1.0),
		budget(102272, 1500, 1100, 1400, 1.0),
		budget(102412, 900, 700, 800, 1.0),
	}
}

func budget(code entities.FacilityCode, total, primaryCare int64, population, gsv float64) *entities.PriorBudget {
	return &entities.PriorBudget{
		Code:            code,
		Budget:          decimal.NewFromInt(total),
		PrimaryCare:     decimal.NewFromInt(primaryCare),
		TotalPopulation: population,
		GeokOldGSV:      gsv,
	}
}
