package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vsinha/capitation/pkg/application/dto"
	"github.com/vsinha/capitation/pkg/application/services/orchestration"
	testhelpers "github.com/vsinha/capitation/pkg/infrastructure/testing"
)

func runSample(t *testing.T) *dto.PipelineResult {
	t.Helper()
	ds := testhelpers.BuildSampleDataset()
	result, err := orchestration.NewPipelineOrchestrator(
		orchestration.DefaultPipelineSettings(),
		ds.Roster, ds.Geography, ds.Transfers, ds.Budgets,
		nil, nil,
	).Run(context.Background(), ds.Rows)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

func TestGenerate_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(runSample(t), Config{Format: "text", Writer: &buf}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Capitation Run", "Stages:", "demographics", "geok_1", "Rebalance (geok_1)", "method2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected text output to contain %q", want)
		}
	}
}

func TestGenerate_JSON(t *testing.T) {
	result := runSample(t)

	var buf bytes.Buffer
	if err := Generate(result, Config{Format: "json", Writer: &buf}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var doc struct {
		RunID      string `json:"run_id"`
		Simulation struct {
			Summaries map[string]json.RawMessage `json:"summaries"`
			Records   []json.RawMessage          `json:"records"`
		} `json:"simulation"`
		Replication struct {
			Totals map[string]json.RawMessage `json:"totals"`
		} `json:"replication"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if doc.RunID != result.RunID {
		t.Errorf("Expected run ID %s, got %s", result.RunID, doc.RunID)
	}
	if _, ok := doc.Simulation.Summaries["geok_old"]; !ok {
		t.Error("Expected summary keyed geok_old")
	}
	if len(doc.Simulation.Records) != 4 {
		t.Errorf("Expected 4 simulation records, got %d", len(doc.Simulation.Records))
	}
	if len(doc.Replication.Totals) != 2 {
		t.Errorf("Expected totals for both methods, got %d", len(doc.Replication.Totals))
	}
}

func TestGenerate_CSV(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(runSample(t), Config{Format: "csv", OutputDir: dir}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "simulation.csv"))
	if err != nil {
		t.Fatalf("Expected simulation.csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("simulation.csv does not parse: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("Expected header plus 4 rows, got %d", len(records))
	}
	// 10 fixed columns plus 6 per variant
	if len(records[0]) != 10+6*4 {
		t.Errorf("Expected %d columns, got %d", 10+6*4, len(records[0]))
	}
	if records[1][0] != "101" {
		t.Errorf("Expected rows sorted by code, first is %s", records[1][0])
	}
	if !strings.HasSuffix(records[0][len(records[0])-1], "geok_3") {
		t.Errorf("Expected last column for geok_3, got %s", records[0][len(records[0])-1])
	}
}

func TestGenerate_CSVRequiresDirectory(t *testing.T) {
	if err := Generate(runSample(t), Config{Format: "csv"}); err == nil {
		t.Error("Expected error without an output directory")
	}
}

func TestGenerate_UnsupportedFormat(t *testing.T) {
	if err := Generate(&dto.PipelineResult{}, Config{Format: "xml"}); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
