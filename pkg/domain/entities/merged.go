package entities

import "github.com/shopspring/decimal"

// Fixed policy blend of the legacy geographic coefficients
const (
	LegacyGSVWeight = 0.75
	LegacyNSWeight  = 0.25
)

// MergedRecord is the canonical per-facility input to simulation and replication
type MergedRecord struct {
	Facility    Facility `json:"facility"`
	Workload    float64  `json:"workload"`
	People      float64  `json:"people"`
	Coefficient float64  `json:"coefficient"`
	Adjusted    float64  `json:"adjusted"`
	UpMax       float64  `json:"up_max"`
	DownMax     float64  `json:"down_max"`

	Altitude  float64 `json:"altitude"`
	Density   float64 `json:"density"`
	Rural     float64 `json:"rural"`
	Smalltown float64 `json:"smalltown"`

	Links TransferLinks `json:"links"`

	Budget          decimal.Decimal `json:"budget"`
	PrimaryCare     decimal.Decimal `json:"primary_care"`
	TotalPopulation float64         `json:"total_population"`

	GeokOldGSV float64 `json:"geok_old_gsv"`
	GeokOldNS  float64 `json:"geok_old_ns"`
	GeokOld    float64 `json:"geok_old"`
}

// PriorBudgetUnits returns the prior primary-care budget in currency units
func (m *MergedRecord) PriorBudgetUnits() float64 {
	return ToUnits(m.PrimaryCare).InexactFloat64()
}

// LegacyNarrowCoefficient computes geok_old_ns from the district indicators
func LegacyNarrowCoefficient(altitude, smalltown, rural float64) float64 {
	return altitude + smalltown + rural - 2
}

// LegacyCoefficient blends the family-medicine and narrow-specialist coefficients
func LegacyCoefficient(gsv, ns float64) float64 {
	return gsv*LegacyGSVWeight + ns*LegacyNSWeight
}
