package entities

import "github.com/shopspring/decimal"

// thousand converts budget table figures, which are kept in thousands
var thousand = decimal.NewFromInt(1000)

// DistrictGeography carries the remoteness indicators of a district
type DistrictGeography struct {
	District  DistrictCode `json:"district"`
	Altitude  float64      `json:"altitude"`
	Density   float64      `json:"density"`
	Rural     float64      `json:"rural"`
	Smalltown float64      `json:"smalltown"`
}

// TransferLinks name the facilities narrow-specialist budget moves between.
// A nil link means no correction.
type TransferLinks struct {
	OriginPrimary   *FacilityCode `json:"origin_1,omitempty"`
	OriginSecondary *FacilityCode `json:"origin_2,omitempty"`
	Destination     *FacilityCode `json:"destination,omitempty"`
}

// TransferLink is one row of the transfer table
type TransferLink struct {
	Code  FacilityCode
	Links TransferLinks
}

// PriorBudget is the previous year's allocation for one facility, in thousands
type PriorBudget struct {
	Code            FacilityCode    `json:"code"`
	Budget          decimal.Decimal `json:"budget"`
	PrimaryCare     decimal.Decimal `json:"primary_care"`
	TotalPopulation float64         `json:"total_population"`
	GeokOldGSV      float64         `json:"geok_old_gsv"`
}

// PrimaryCareUnits returns the primary-care budget in currency units
func (b PriorBudget) PrimaryCareUnits() decimal.Decimal {
	return b.PrimaryCare.Mul(thousand)
}

// ToUnits converts a figure in thousands to currency units
func ToUnits(thousands decimal.Decimal) decimal.Decimal {
	return thousands.Mul(thousand)
}

// CodePtr returns a pointer to code, for building TransferLinks literals
func CodePtr(code FacilityCode) *FacilityCode {
	return &code
}
