package shared

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// ApproxEqual compares floats with a relative tolerance scaled by magnitude
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// WeightedMean returns Σ value*weight / Σ weight. A zero total weight is a
// division by zero.
func WeightedMean(values, weights []float64) (float64, error) {
	if len(weights) == 0 || floats.Sum(weights) == 0 {
		return 0, entities.ErrDivisionByZero
	}
	return stat.Mean(values, weights), nil
}

// Bin is one histogram bucket covering [Lower, Lower+width)
type Bin struct {
	Lower float64 `json:"lower"`
	Count int     `json:"count"`
}

// Histogram buckets values into fixed-width bins aligned on multiples of
// width. Only non-empty bins are returned, in ascending order. NaN and
// infinite values are skipped.
func Histogram(values []float64, width float64) []Bin {
	if width <= 0 || len(values) == 0 {
		return nil
	}

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil
	}
	slices.Sort(finite)

	first := math.Floor(finite[0] / width)
	last := math.Floor(finite[len(finite)-1] / width)
	dividers := make([]float64, 0, int(last-first)+2)
	for k := first; k <= last+1; k++ {
		dividers = append(dividers, k*width)
	}
	// stat.Histogram needs every value inside [dividers[0], dividers[n-1]).
	dividers[0] = math.Min(dividers[0], finite[0])
	if top := finite[len(finite)-1]; dividers[len(dividers)-1] <= top {
		dividers[len(dividers)-1] = math.Nextafter(top, math.Inf(1))
	}

	counts := stat.Histogram(nil, dividers, finite, nil)

	var bins []Bin
	for i, c := range counts {
		if c == 0 {
			continue
		}
		bins = append(bins, Bin{Lower: (first + float64(i)) * width, Count: int(c)})
	}
	return bins
}
