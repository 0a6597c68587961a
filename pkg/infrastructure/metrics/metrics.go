// Package metrics renders stage reports in the Prometheus text exposition
// format, for collection through the node-exporter textfile collector.
package metrics

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

const namespace = "capitation"

// Gauge is an extra run-level value exported next to the stage gauges
type Gauge struct {
	Name   string
	Help   string
	Labels map[string]string
	Value  float64
}

// WriteStageReports writes one gauge family per report counter, labelled by
// stage, followed by the extra gauges. Extras sharing a name are grouped
// into one family.
func WriteStageReports(w io.Writer, reports []*entities.StageReport, extras []Gauge) error {
	families := []*dto.MetricFamily{
		stageFamily("stage_processed", "Records processed by a pipeline stage.", reports,
			func(r *entities.StageReport) float64 { return float64(r.Processed) }),
		stageFamily("stage_dropped", "Records dropped by a pipeline stage.", reports,
			func(r *entities.StageReport) float64 { return float64(r.Dropped) }),
		stageFamily("stage_anomalies", "Anomalies flagged by a pipeline stage.", reports,
			func(r *entities.StageReport) float64 { return float64(r.Anomalies) }),
		stageFamily("stage_warnings", "Warnings raised by a pipeline stage.", reports,
			func(r *entities.StageReport) float64 { return float64(len(r.Warnings)) }),
	}

	byName := make(map[string]*dto.MetricFamily)
	var names []string
	for _, g := range extras {
		name := namespace + "_" + g.Name
		mf, ok := byName[name]
		if !ok {
			mf = &dto.MetricFamily{Name: ptr(name), Help: ptr(g.Help), Type: dto.MetricType_GAUGE.Enum()}
			byName[name] = mf
			names = append(names, name)
		}
		mf.Metric = append(mf.Metric, gauge(g.Value, g.Labels))
	}
	for _, name := range names {
		families = append(families, byName[name])
	}

	for _, mf := range families {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func stageFamily(name, help string, reports []*entities.StageReport, value func(*entities.StageReport) float64) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: ptr(namespace + "_" + name),
		Help: ptr(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, r := range reports {
		if r == nil {
			continue
		}
		mf.Metric = append(mf.Metric, gauge(value(r), map[string]string{"stage": r.Stage}))
	}
	return mf
}

func gauge(value float64, labels map[string]string) *dto.Metric {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := &dto.Metric{Gauge: &dto.Gauge{Value: ptr(value)}}
	for _, k := range keys {
		m.Label = append(m.Label, &dto.LabelPair{Name: ptr(k), Value: ptr(labels[k])})
	}
	return m
}

func ptr[T any](v T) *T {
	return &v
}
