package entities

// ReplicatedBudget is one formula's reconstruction of a prior-year budget
type ReplicatedBudget struct {
	Narrow    float64 `json:"narrow"`
	Family    float64 `json:"family"`
	Total     float64 `json:"total"`
	Deviation float64 `json:"deviation"`
}

// ReplicationRecord compares two replication formulas against the actual budget
type ReplicationRecord struct {
	Facility        Facility         `json:"facility"`
	People          float64          `json:"people"`
	PeopleNarrow    float64          `json:"people_narrow"`
	Insured         float64          `json:"insured"`
	TotalPopulation float64          `json:"total_population"`
	GeokOldNS       float64          `json:"geok_old_ns"`
	GeokOldGSV      float64          `json:"geok_old_gsv"`
	GeokOld         float64          `json:"geok_old"`
	Prefk           float64          `json:"prefk"`
	ActualBudget    float64          `json:"actual_budget"`
	Method1         ReplicatedBudget `json:"method1"`
	Method2         ReplicatedBudget `json:"method2"`
}
