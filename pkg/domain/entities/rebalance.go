package entities

import "github.com/shopspring/decimal"

// RebalancedRecord is a facility's budget after the floor and cap are applied
type RebalancedRecord struct {
	Facility       Facility `json:"facility"`
	People         float64  `json:"people"`
	OldBudget      float64  `json:"old_budget"`
	NewBudget      float64  `json:"new_budget"`
	Impact         float64  `json:"impact"`
	Shortfall      float64  `json:"shortfall"`
	Excess         float64  `json:"excess"`
	AdjustedBudget float64  `json:"adjusted_budget"`
	AdjustedImpact float64  `json:"adjusted_impact"`
}

// RebalanceResult is the budget-neutral allocation for one variant
type RebalanceResult struct {
	Variant           Variant                            `json:"variant"`
	TotalBudget       decimal.Decimal                    `json:"total_budget"`
	DownMaxPercentage float64                            `json:"down_max_percentage"`
	UpMax             float64                            `json:"up_max"`
	UpMaxPercentage   float64                            `json:"up_max_percentage"`
	ShortfallTotal    float64                            `json:"shortfall_total"`
	ExcessTotal       float64                            `json:"excess_total"`
	Residual          float64                            `json:"residual"`
	Iterations        int                                `json:"iterations"`
	Degraded          bool                               `json:"degraded"`
	Records           map[FacilityCode]*RebalancedRecord `json:"records"`
}
