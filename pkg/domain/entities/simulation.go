package entities

import (
	"fmt"
	"strings"
)

// Variant names one geographic-coefficient definition
type Variant string

const (
	VariantOld Variant = "old"
	Variant1   Variant = "1"
	Variant2   Variant = "2"
	Variant3   Variant = "3"
)

// DensityThreshold separates sparse districts in the geok_3 definition
const (
	DensityThreshold   = 57.0
	SparseDensityGeok  = 1.3
	DefaultDensityGeok = 1.0
)

// KnownVariants lists every variant the simulator can evaluate
func KnownVariants() []Variant {
	return []Variant{VariantOld, Variant1, Variant2, Variant3}
}

// ParseVariant accepts "old", "1", or the prefixed form "geok_1"
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "geok_"))
	for _, known := range KnownVariants() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown geographic coefficient variant %q", s)
}

// String returns the column-style name, e.g. geok_1
func (v Variant) String() string {
	return "geok_" + string(v)
}

// VariantBudget is the budget computed for one facility under one variant.
// New always equals Raw - Subtract + Add1 + Add2.
type VariantBudget struct {
	Raw      float64 `json:"raw"`
	Add1     float64 `json:"add1"`
	Add2     float64 `json:"add2"`
	Subtract float64 `json:"subtract"`
	New      float64 `json:"new"`
	Impact   float64 `json:"impact"`
}

// SimulationRecord is a facility's simulation input plus per-variant results
type SimulationRecord struct {
	Facility    Facility      `json:"facility"`
	People      float64       `json:"people"`
	Adjusted    float64       `json:"adjusted"`
	Altitude    float64       `json:"altitude"`
	Rural       float64       `json:"rural"`
	Density     float64       `json:"density"`
	Links       TransferLinks `json:"links"`
	PriorBudget float64       `json:"prior_budget"`

	GeokOld float64 `json:"geok_old"`
	Geok1   float64 `json:"geok_1"`
	Geok2   float64 `json:"geok_2"`
	Geok3   float64 `json:"geok_3"`

	Budgets map[Variant]VariantBudget `json:"budgets"`
}

// Geok returns the coefficient used by a variant
func (r *SimulationRecord) Geok(v Variant) (float64, error) {
	switch v {
	case VariantOld:
		return r.GeokOld, nil
	case Variant1:
		return r.Geok1, nil
	case Variant2:
		return r.Geok2, nil
	case Variant3:
		return r.Geok3, nil
	default:
		return 0, fmt.Errorf("unknown geographic coefficient variant %q", string(v))
	}
}

// DefineGeographicCoefficients fills geok_1..geok_3 from the district indicators
func (r *SimulationRecord) DefineGeographicCoefficients() {
	r.Geok1 = r.Altitude + r.Rural - 1
	r.Geok2 = r.Altitude
	if r.Density < DensityThreshold {
		r.Geok3 = SparseDensityGeok
	} else {
		r.Geok3 = DefaultDensityGeok
	}
}
