package output

import (
	"time"

	"github.com/vsinha/capitation/pkg/application/dto"
	"github.com/vsinha/capitation/pkg/application/services/replication"
	"github.com/vsinha/capitation/pkg/application/services/shared"
	"github.com/vsinha/capitation/pkg/application/services/simulation"
	"github.com/vsinha/capitation/pkg/domain/entities"
)

// document is the JSON shape of a pipeline result. Errors are flattened to
// strings and records are emitted in facility-code order.
type document struct {
	RunID        string                       `json:"run_id"`
	StartedAt    time.Time                    `json:"started_at"`
	CompletedAt  time.Time                    `json:"completed_at"`
	Reports      []*entities.StageReport      `json:"reports"`
	Coefficients *entities.AgeSexCoefficients `json:"age_sex_coefficients,omitempty"`
	Simulation   *simulationDocument          `json:"simulation,omitempty"`
	Rebalance    *entities.RebalanceResult    `json:"rebalance,omitempty"`
	Replication  *replicationDocument         `json:"replication,omitempty"`
	Merged       []*entities.MergedRecord     `json:"merged,omitempty"`
	Workload     []*entities.WorkloadRecord   `json:"workload,omitempty"`
}

type simulationDocument struct {
	Summaries    map[string]simulation.Summary       `json:"summaries"`
	Failures     map[string]string                   `json:"failures,omitempty"`
	RegionTotals map[string][]simulation.RegionTotal `json:"region_totals"`
	Histograms   map[string][]shared.Bin             `json:"impact_histograms"`
	Records      []*entities.SimulationRecord        `json:"records"`
}

type replicationDocument struct {
	Totals    map[replication.Method]replication.Totals `json:"totals"`
	Failures  map[replication.Method]string             `json:"failures,omitempty"`
	Histogram []shared.Bin                              `json:"deviation_histogram"`
	Records   []*entities.ReplicationRecord             `json:"records"`
}

func newDocument(result *dto.PipelineResult) document {
	doc := document{
		RunID:        result.RunID,
		StartedAt:    result.StartedAt,
		CompletedAt:  result.CompletedAt,
		Reports:      result.Reports,
		Coefficients: result.Coefficients,
		Rebalance:    result.Rebalance,
	}

	for _, code := range entities.SortedCodes(result.Workload) {
		doc.Workload = append(doc.Workload, result.Workload[code])
	}
	if result.Merge != nil {
		for _, code := range entities.SortedCodes(result.Merge.Records) {
			doc.Merged = append(doc.Merged, result.Merge.Records[code])
		}
	}

	if sim := result.Simulation; sim != nil {
		sd := &simulationDocument{
			Summaries:    make(map[string]simulation.Summary),
			Failures:     make(map[string]string),
			RegionTotals: make(map[string][]simulation.RegionTotal),
			Histograms:   make(map[string][]shared.Bin),
		}
		for v, s := range sim.Summaries {
			sd.Summaries[v.String()] = s
			sd.RegionTotals[v.String()] = sim.RegionTotals[v]
			sd.Histograms[v.String()] = sim.Histograms[v]
		}
		for v, err := range sim.Failures {
			sd.Failures[v.String()] = err.Error()
		}
		for _, code := range entities.SortedCodes(sim.Records) {
			sd.Records = append(sd.Records, sim.Records[code])
		}
		doc.Simulation = sd
	}

	if rep := result.Replication; rep != nil {
		rd := &replicationDocument{
			Totals:    rep.Totals,
			Failures:  make(map[replication.Method]string),
			Histogram: rep.Histogram,
		}
		for m, err := range rep.Failures {
			rd.Failures[m] = err.Error()
		}
		for _, code := range entities.SortedCodes(rep.Records) {
			rd.Records = append(rd.Records, rep.Records[code])
		}
		doc.Replication = rd
	}

	return doc
}
