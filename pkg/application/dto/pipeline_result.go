package dto

import (
	"time"

	"github.com/vsinha/capitation/pkg/application/services/merge"
	"github.com/vsinha/capitation/pkg/application/services/replication"
	"github.com/vsinha/capitation/pkg/application/services/simulation"
	"github.com/vsinha/capitation/pkg/domain/entities"
)

// PipelineResult contains the complete output of a pipeline run
type PipelineResult struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time

	Roster       []*entities.Facility
	Coefficients *entities.AgeSexCoefficients
	Workload     map[entities.FacilityCode]*entities.WorkloadRecord
	Merge        *merge.Result
	Simulation   *simulation.Result
	Rebalance    *entities.RebalanceResult
	Replication  *replication.Result

	Reports []*entities.StageReport
}

// Facilities returns the number of facilities that reached simulation
func (r *PipelineResult) Facilities() int {
	if r.Merge == nil {
		return 0
	}
	return len(r.Merge.Records)
}

// WarningCount sums warnings across every stage report
func (r *PipelineResult) WarningCount() int {
	var n int
	for _, report := range r.Reports {
		n += len(report.Warnings)
	}
	return n
}

// Duration returns the wall time of the run
func (r *PipelineResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
