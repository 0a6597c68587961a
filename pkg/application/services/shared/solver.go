package shared

import (
	"fmt"
	"math"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// Root finding defaults
const (
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 100
	DefaultMaxExpansions = 10
	DefaultScanStep      = 0.1
	fallbackUpperBound   = 0.1
)

// RootMethod names how a root was obtained
type RootMethod string

const (
	MethodExact     RootMethod = "exact"
	MethodBisection RootMethod = "bisection"
	MethodScan      RootMethod = "scan"
)

// RootResult describes the outcome of FindSmallestRoot
type RootResult struct {
	Root       float64
	Residual   float64
	Iterations int
	Degraded   bool
	Method     RootMethod
}

// SolverOptions tunes FindSmallestRoot; zero fields take defaults
type SolverOptions struct {
	Tolerance     float64
	MaxIterations int
	MaxExpansions int
	ScanStep      float64
}

func (o SolverOptions) withDefaults() SolverOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxExpansions <= 0 {
		o.MaxExpansions = DefaultMaxExpansions
	}
	if o.ScanStep <= 0 {
		o.ScanStep = DefaultScanStep
	}
	return o
}

// FindSmallestRoot finds the smallest x >= 0 with f(x) = 0 for a
// non-increasing f. The bracket starts at [0, initialUpper] and the upper
// bound is doubled until f changes sign. When no sign change is found the
// best point of a linear scan is returned with Degraded set and an error
// wrapping entities.ErrRootNonconvergence. Bisection runs until the bracket
// cannot shrink further; a residual still above the tolerance is reported
// the same way.
func FindSmallestRoot(f func(float64) float64, initialUpper float64, opts SolverOptions) (RootResult, error) {
	opts = opts.withDefaults()

	f0 := f(0)
	if math.Abs(f0) <= opts.Tolerance {
		return RootResult{Root: 0, Residual: f0, Method: MethodExact}, nil
	}
	if f0 < 0 {
		// Already below the target at zero; nothing to bracket.
		return scan(f, 0, opts, 0)
	}

	hi := initialUpper
	if hi <= 0 {
		hi = fallbackUpperBound
	}
	fhi := f(hi)
	expansions := 0
	for fhi > opts.Tolerance && expansions < opts.MaxExpansions {
		hi *= 2
		fhi = f(hi)
		expansions++
	}
	if fhi > opts.Tolerance {
		return scan(f, hi, opts, expansions)
	}

	lo, flo := 0.0, f0
	iterations := 0
	for iterations < opts.MaxIterations {
		mid := lo + (hi-lo)/2
		if mid <= lo || mid >= hi {
			break
		}
		fmid := f(mid)
		iterations++
		if fmid > 0 {
			lo, flo = mid, fmid
		} else {
			hi, fhi = mid, fmid
		}
	}

	result := RootResult{
		Root:       hi,
		Residual:   fhi,
		Iterations: iterations + expansions,
		Method:     MethodBisection,
	}

	// f is piecewise linear, so a secant step inside the final bracket
	// usually lands on the root.
	if fhi != 0 && flo != fhi {
		if x := lo + flo*(hi-lo)/(flo-fhi); x > lo && x < hi {
			if fx := f(x); math.Abs(fx) < math.Abs(result.Residual) {
				result.Root, result.Residual = x, fx
			}
		}
	}
	if flo < math.Abs(result.Residual) {
		result.Root, result.Residual = lo, flo
	}

	if math.Abs(result.Residual) > opts.Tolerance {
		result.Degraded = true
		return result, fmt.Errorf("bracket exhausted at %g with residual %g: %w",
			result.Root, result.Residual, entities.ErrRootNonconvergence)
	}
	return result, nil
}

// scan walks [0, hi] with a fixed step and keeps the point with the smallest |f|
func scan(f func(float64) float64, hi float64, opts SolverOptions, expansions int) (RootResult, error) {
	best := RootResult{Root: 0, Residual: f(0), Degraded: true, Method: MethodScan}
	steps := 0
	for x := opts.ScanStep; x <= hi+opts.ScanStep/2; x += opts.ScanStep {
		steps++
		if v := f(x); math.Abs(v) < math.Abs(best.Residual) {
			best.Root, best.Residual = x, v
		}
	}
	best.Iterations = steps + expansions
	return best, fmt.Errorf("no sign change up to %g, best residual %g at %g: %w",
		hi, best.Residual, best.Root, entities.ErrRootNonconvergence)
}
