package entities

import "fmt"

// StageReport summarizes what a pipeline stage did with its input so that
// operators can audit data loss between stages
type StageReport struct {
	Stage     string   `json:"stage"`
	Processed int      `json:"processed"`
	Dropped   int      `json:"dropped"`
	Anomalies int      `json:"anomalies"`
	Warnings  []string `json:"warnings,omitempty"`
}

// NewStageReport creates an empty report for a stage
func NewStageReport(stage string) *StageReport {
	return &StageReport{Stage: stage}
}

// Warn records a non-fatal condition
func (r *StageReport) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// WarnErr records a recovered error
func (r *StageReport) WarnErr(err error) {
	r.Warnings = append(r.Warnings, err.Error())
}

// String returns a one-line summary
func (r *StageReport) String() string {
	return fmt.Sprintf("%s: processed=%d dropped=%d anomalies=%d warnings=%d",
		r.Stage, r.Processed, r.Dropped, r.Anomalies, len(r.Warnings))
}
