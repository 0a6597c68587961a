package entities

// RosterOverride replaces roster metadata for one facility. Empty fields are
// left untouched.
type RosterOverride struct {
	LegacyCode   int          `yaml:"legacy_code" json:"legacy_code,omitempty"`
	Region       string       `yaml:"region" json:"region,omitempty"`
	District     string       `yaml:"district" json:"district,omitempty"`
	RegionCode   int64        `yaml:"region_code" json:"region_code,omitempty"`
	DistrictCode DistrictCode `yaml:"district_code" json:"district_code,omitempty"`
	ShortName    string       `yaml:"short_name" json:"short_name,omitempty"`
}

// Apply writes the non-empty override fields onto f
func (o RosterOverride) Apply(f *Facility) {
	if o.LegacyCode != 0 {
		f.LegacyCode = o.LegacyCode
	}
	if o.Region != "" {
		f.Region = o.Region
	}
	if o.District != "" {
		f.District = o.District
	}
	if o.RegionCode != 0 {
		f.RegionCode = o.RegionCode
	}
	if o.DistrictCode != 0 {
		f.DistrictCode = o.DistrictCode
	}
	if o.ShortName != "" {
		f.ShortName = o.ShortName
	}
}

// PolicyOverrides is the auditable table of facility-specific exceptions.
// Every special-cased facility in the pipeline is named here and nowhere else.
type PolicyOverrides struct {
	// CodeRemaps merges the left facility into the right one during aggregation.
	CodeRemaps map[FacilityCode]FacilityCode `yaml:"code_remaps" json:"code_remaps"`

	// ExcludedCodes are removed during aggregation.
	ExcludedCodes []FacilityCode `yaml:"excluded_codes" json:"excluded_codes"`

	// ExcludedLegacyCodes removes facilities by their legacy roster code.
	ExcludedLegacyCodes []int `yaml:"excluded_legacy_codes" json:"excluded_legacy_codes"`

	// AggregationRoster corrects metadata of merged facilities during aggregation.
	AggregationRoster map[FacilityCode]RosterOverride `yaml:"aggregation_roster" json:"aggregation_roster"`

	// WorkloadRoster corrects metadata when the roster is attached to workload records.
	WorkloadRoster map[FacilityCode]RosterOverride `yaml:"workload_roster" json:"workload_roster"`

	// WorkloadScaleDown has its adjusted workload reduced by the reassignment
	// percentage before simulation.
	WorkloadScaleDown *FacilityCode `yaml:"workload_scale_down" json:"workload_scale_down,omitempty"`

	// NarrowSpecialistExempt receives no narrow-specialist population in replication.
	NarrowSpecialistExempt *FacilityCode `yaml:"narrow_specialist_exempt" json:"narrow_specialist_exempt,omitempty"`
}

// DefaultOverrides returns the overrides in force for the national dataset
func DefaultOverrides() PolicyOverrides {
	railwayClinic := FacilityCode(102272)
	return PolicyOverrides{
		CodeRemaps:          map[FacilityCode]FacilityCode{620391: 620371},
		ExcludedCodes:       []FacilityCode{102412, 0},
		ExcludedLegacyCodes: []int{1322},
		AggregationRoster: map[FacilityCode]RosterOverride{
			620371: {
				LegacyCode:   6820,
				Region:       "Ошская область",
				District:     "Ноокатский район",
				RegionCode:   4170600000000000,
				DistrictCode: 41706242000000000,
				ShortName:    "ЦСМ НООКАТСКОГО РАЙОНА \"МЕДИГОС\"",
			},
		},
		WorkloadRoster: map[FacilityCode]RosterOverride{
			927181: {
				District:     "город Ош",
				DistrictCode: 41721000000000000,
			},
		},
		WorkloadScaleDown:      &railwayClinic,
		NarrowSpecialistExempt: &railwayClinic,
	}
}

// IsExcluded reports whether a facility is dropped during aggregation
func (p PolicyOverrides) IsExcluded(f Facility) bool {
	for _, code := range p.ExcludedCodes {
		if f.Code == code {
			return true
		}
	}
	for _, legacy := range p.ExcludedLegacyCodes {
		if f.LegacyCode == legacy {
			return true
		}
	}
	return false
}

// Remap returns the code a facility is merged into
func (p PolicyOverrides) Remap(code FacilityCode) FacilityCode {
	if target, ok := p.CodeRemaps[code]; ok {
		return target
	}
	return code
}
