package entities

import "math"

// WorkloadRecord is the demand-weighted burden of one facility
type WorkloadRecord struct {
	Facility    Facility `json:"facility"`
	Named       bool     `json:"named"`
	Workload    float64  `json:"workload"`
	People      float64  `json:"people"`
	Coefficient float64  `json:"coefficient"`
	Adjusted    float64  `json:"adjusted"`
	UpMax       float64  `json:"up_max"`
	DownMax     float64  `json:"down_max"`
	Anomalous   bool     `json:"anomalous"`
}

// Clamp bounds x to [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
