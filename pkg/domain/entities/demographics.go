package entities

// Age buckets run from 0 to MaxAge inclusive; bucket MaxAge doubles as the
// cumulative per-facility total once demographics are aggregated.
const (
	MaxAge     = 99
	AgeBuckets = MaxAge + 1
)

// Sex distinguishes the two population series
type Sex int

const (
	Male Sex = iota
	Female
)

// String method for Sex enum
func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return "unknown"
	}
}

// Pivot maps age -> facility code -> count
type Pivot map[int]map[FacilityCode]float64

// NewPivot creates an empty pivot
func NewPivot() Pivot {
	return make(Pivot)
}

// Add accumulates value into the age/code cell
func (p Pivot) Add(age int, code FacilityCode, value float64) {
	row, ok := p[age]
	if !ok {
		row = make(map[FacilityCode]float64)
		p[age] = row
	}
	row[code] += value
}

// Get returns the age/code cell and whether it exists
func (p Pivot) Get(age int, code FacilityCode) (float64, bool) {
	row, ok := p[age]
	if !ok {
		return 0, false
	}
	v, ok := row[code]
	return v, ok
}

// AgeTotal sums one age across all facilities
func (p Pivot) AgeTotal(age int) float64 {
	var total float64
	for _, v := range p[age] {
		total += v
	}
	return total
}

// Total sums every cell in the pivot
func (p Pivot) Total() float64 {
	var total float64
	for age := range p {
		total += p.AgeTotal(age)
	}
	return total
}

// Codes returns the set of facility codes present at any age
func (p Pivot) Codes() map[FacilityCode]struct{} {
	codes := make(map[FacilityCode]struct{})
	for _, row := range p {
		for code := range row {
			codes[code] = struct{}{}
		}
	}
	return codes
}

// Demographics is the per-facility, per-age population and visit profile
type Demographics struct {
	MalePopulation   Pivot
	FemalePopulation Pivot
	MaleVisits       Pivot
	FemaleVisits     Pivot
}

// NewDemographics creates an empty profile
func NewDemographics() Demographics {
	return Demographics{
		MalePopulation:   NewPivot(),
		FemalePopulation: NewPivot(),
		MaleVisits:       NewPivot(),
		FemaleVisits:     NewPivot(),
	}
}

// Population returns the population pivot for a sex
func (d Demographics) Population(sex Sex) Pivot {
	if sex == Female {
		return d.FemalePopulation
	}
	return d.MalePopulation
}

// Visits returns the visit pivot for a sex
func (d Demographics) Visits(sex Sex) Pivot {
	if sex == Female {
		return d.FemaleVisits
	}
	return d.MaleVisits
}

// PopulationVisitRow is one raw row of the population and visits extract
type PopulationVisitRow struct {
	Facility    Facility
	Age         int
	Men         float64
	Women       float64
	VisitsMen   float64
	VisitsWomen float64
	Insured     float64
}
