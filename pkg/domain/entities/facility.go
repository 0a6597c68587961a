package entities

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// FacilityCode is the stable identifier of a primary-care organization
type FacilityCode int

// String renders the code as a plain integer
func (c FacilityCode) String() string {
	return strconv.Itoa(int(c))
}

// DistrictCode identifies the administrative district a facility belongs to
type DistrictCode int64

// Facility holds roster metadata for a primary-care organization
type Facility struct {
	Code         FacilityCode `json:"code"`
	LegacyCode   int          `json:"legacy_code"`
	Region       string       `json:"region"`
	District     string       `json:"district"`
	RegionCode   int64        `json:"region_code"`
	DistrictCode DistrictCode `json:"district_code"`
	ShortName    string       `json:"short_name"`
	FullName     string       `json:"full_name"`
	Insured      float64      `json:"insured"`
}

// NewFacility creates a validated Facility
func NewFacility(code FacilityCode, shortName string, districtCode DistrictCode, insured float64) (*Facility, error) {
	if code <= 0 {
		return nil, fmt.Errorf("facility code must be positive, got %d", code)
	}
	if insured < 0 {
		return nil, fmt.Errorf("insured population cannot be negative, got %f", insured)
	}

	return &Facility{
		Code:         code,
		ShortName:    shortName,
		DistrictCode: districtCode,
		Insured:      insured,
	}, nil
}

// DisplayName returns the short name, falling back to the code
func (f Facility) DisplayName() string {
	if f.ShortName != "" {
		return f.ShortName
	}
	return "facility " + f.Code.String()
}

// SortedCodes returns the keys of a facility-keyed map in ascending order
func SortedCodes[V any](m map[FacilityCode]V) []FacilityCode {
	return slices.Sorted(maps.Keys(m))
}
