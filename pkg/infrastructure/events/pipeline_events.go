package events

import (
	"github.com/vsinha/capitation/pkg/domain/entities"
)

const (
	RunStartedEvent   = "run.started"
	RunCompletedEvent = "run.completed"
	RunFailedEvent    = "run.failed"

	StageCompletedEvent    = "stage.completed"
	FacilitiesDroppedEvent = "facilities.dropped"

	VariantFailedEvent     = "variant.failed"
	RebalanceDegradedEvent = "rebalance.degraded"
)

// AllEventTypes lists every pipeline event type
func AllEventTypes() []string {
	return []string{
		RunStartedEvent, RunCompletedEvent, RunFailedEvent,
		StageCompletedEvent, FacilitiesDroppedEvent, VariantFailedEvent, RebalanceDegradedEvent,
	}
}

type RunStarted struct {
	ConfigPath string   `json:"config_path,omitempty"`
	Variants   []string `json:"variants"`
}

type RunCompleted struct {
	Facilities int `json:"facilities"`
	Warnings   int `json:"warnings"`
}

type RunFailed struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

type StageCompleted struct {
	Report entities.StageReport `json:"report"`
}

// FacilitiesDropped carries the warnings of a stage that removed facilities
type FacilitiesDropped struct {
	Stage   string   `json:"stage"`
	Count   int      `json:"count"`
	Reasons []string `json:"reasons,omitempty"`
}

type VariantFailed struct {
	Variant string `json:"variant"`
	Error   string `json:"error"`
}

type RebalanceDegraded struct {
	Variant  string  `json:"variant"`
	UpMax    float64 `json:"up_max"`
	Residual float64 `json:"residual"`
}
