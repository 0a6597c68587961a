package entities

// AgeSexCoefficients holds per-age demand multipliers for each sex.
// Ages without population are absent rather than zero.
type AgeSexCoefficients struct {
	Male            map[int]float64 `json:"male"`
	Female          map[int]float64 `json:"female"`
	VisitsPerCapita float64         `json:"visits_per_capita"`
}

// CoefficientPair is the combined view of one age bucket
type CoefficientPair struct {
	Male      float64 `json:"male,omitempty"`
	Female    float64 `json:"female,omitempty"`
	HasMale   bool    `json:"has_male"`
	HasFemale bool    `json:"has_female"`
}

// For returns the coefficient map of one sex
func (c *AgeSexCoefficients) For(sex Sex) map[int]float64 {
	if sex == Female {
		return c.Female
	}
	return c.Male
}

// Combined returns every age bucket with whichever coefficients exist
func (c *AgeSexCoefficients) Combined() map[int]CoefficientPair {
	combined := make(map[int]CoefficientPair, AgeBuckets)
	for age := 0; age <= MaxAge; age++ {
		var pair CoefficientPair
		if v, ok := c.Male[age]; ok {
			pair.Male, pair.HasMale = v, true
		}
		if v, ok := c.Female[age]; ok {
			pair.Female, pair.HasFemale = v, true
		}
		combined[age] = pair
	}
	return combined
}
