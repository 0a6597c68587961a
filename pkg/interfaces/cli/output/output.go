package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/application/dto"
	"github.com/vsinha/capitation/pkg/application/services/replication"
	"github.com/vsinha/capitation/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool

	// Writer receives text and JSON output when OutputDir is empty; nil means stdout.
	Writer io.Writer
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// Generate creates output in the specified format
func Generate(result *dto.PipelineResult, config Config) error {
	switch config.Format {
	case "text", "":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// money renders currency units rounded to two places
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// generateTextOutput prints a human-readable summary
func generateTextOutput(result *dto.PipelineResult, config Config) error {
	w := config.writer()
	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(filepath.Join(config.OutputDir, "summary.txt"))
		if err != nil {
			return fmt.Errorf("failed to create summary file: %w", err)
		}
		defer f.Close()
		w = f
	}

	fmt.Fprintf(w, "Capitation Run %s\n", result.RunID)
	fmt.Fprintf(w, "================\n\n")
	fmt.Fprintf(w, "Facilities simulated: %d\n", result.Facilities())
	fmt.Fprintf(w, "Warnings: %d\n", result.WarningCount())
	fmt.Fprintf(w, "Duration: %v\n\n", result.Duration())

	fmt.Fprintf(w, "Stages:\n")
	fmt.Fprintf(w, "%-24s %-10s %-8s %-10s %-8s\n", "Stage", "Processed", "Dropped", "Anomalies", "Warnings")
	fmt.Fprintf(w, "%-24s %-10s %-8s %-10s %-8s\n", "------------------------", "----------", "--------", "----------", "--------")
	for _, r := range result.Reports {
		fmt.Fprintf(w, "%-24s %-10d %-8d %-10d %-8d\n", r.Stage, r.Processed, r.Dropped, r.Anomalies, len(r.Warnings))
	}
	fmt.Fprintln(w)

	if result.Merge != nil {
		fmt.Fprintf(w, "Weighted geok_old_ns: %.4f\n", result.Merge.WeightedGeokOldNS)
		fmt.Fprintf(w, "Weighted geok_old_gsv: %.4f\n\n", result.Merge.WeightedGeokOldGSV)
	}

	if sim := result.Simulation; sim != nil {
		fmt.Fprintf(w, "Variants:\n")
		fmt.Fprintf(w, "%-10s %-18s %-16s %-18s %-8s\n", "Variant", "Total Budget", "Per Capita", "Total New", "Status")
		fmt.Fprintf(w, "%-10s %-18s %-16s %-18s %-8s\n", "----------", "------------------", "----------------", "------------------", "--------")
		for _, v := range entities.KnownVariants() {
			if s, ok := sim.Summaries[v]; ok {
				fmt.Fprintf(w, "%-10s %-18s %-16s %-18s %-8s\n",
					v, s.TotalBudget.StringFixed(2), money(s.PerCapitaRate), money(s.TotalNew), "ok")
			} else if err, failed := sim.Failures[v]; failed {
				fmt.Fprintf(w, "%-10s %-18s %-16s %-18s %s\n", v, "-", "-", "-", err)
			}
		}
		fmt.Fprintln(w)
	}

	if rb := result.Rebalance; rb != nil {
		fmt.Fprintf(w, "Rebalance (%s):\n", rb.Variant)
		fmt.Fprintf(w, "  Floor: -%.2f%%\n", rb.DownMaxPercentage)
		fmt.Fprintf(w, "  Solved cap: +%.4f%%\n", rb.UpMaxPercentage)
		fmt.Fprintf(w, "  Shortfall funded: %s\n", money(rb.ShortfallTotal))
		fmt.Fprintf(w, "  Excess clawed back: %s\n", money(rb.ExcessTotal))
		if rb.Degraded {
			fmt.Fprintf(w, "  Degraded: approximate cap, residual %s\n", money(rb.Residual))
		}
		fmt.Fprintln(w)
	}

	if rep := result.Replication; rep != nil {
		fmt.Fprintf(w, "Replication:\n")
		for _, m := range []replication.Method{replication.MethodBaseRate, replication.MethodDirectRate} {
			totals, ok := rep.Totals[m]
			if !ok {
				fmt.Fprintf(w, "  %s: failed: %v\n", m, rep.Failures[m])
				continue
			}
			fmt.Fprintf(w, "  %s: narrow %s, family %s, total %s\n", m, money(totals.Narrow), money(totals.Family), money(totals.Total))
		}
		fmt.Fprintln(w)
	}

	if config.Verbose {
		for _, r := range result.Reports {
			for _, warning := range r.Warnings {
				fmt.Fprintf(w, "[%s] %s\n", r.Stage, warning)
			}
		}
	}

	return nil
}

// generateJSONOutput writes the full result as one JSON document
func generateJSONOutput(result *dto.PipelineResult, config Config) error {
	jsonData, err := json.MarshalIndent(newDocument(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err := fmt.Fprintln(config.writer(), string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, "capitation_results.json")
	if err := os.WriteFile(filename, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one CSV per stage output
func generateCSVOutput(result *dto.PipelineResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name  string
		write func(*csv.Writer) error
	}{
		{"simulation.csv", func(w *csv.Writer) error { return writeSimulationCSV(w, result) }},
		{"rebalance.csv", func(w *csv.Writer) error { return writeRebalanceCSV(w, result.Rebalance) }},
		{"replication.csv", func(w *csv.Writer) error { return writeReplicationCSV(w, result) }},
	}

	for _, f := range files {
		filename := filepath.Join(config.OutputDir, f.name)
		if err := writeCSVFile(filename, f.write); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		if config.Verbose {
			fmt.Fprintf(config.writer(), "CSV results saved to: %s\n", filename)
		}
	}
	return nil
}

func writeCSVFile(filename string, write func(*csv.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func writeSimulationCSV(w *csv.Writer, result *dto.PipelineResult) error {
	sim := result.Simulation
	if sim == nil {
		return w.Write([]string{"facility_code"})
	}

	header := []string{"facility_code", "short_name", "region", "people", "adjusted", "prior_budget",
		"geok_old", "geok_1", "geok_2", "geok_3"}
	for _, v := range sim.Variants {
		for _, col := range []string{"raw", "add1", "add2", "subtract", "new", "impact"} {
			header = append(header, col+"_"+v.String())
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, code := range entities.SortedCodes(sim.Records) {
		r := sim.Records[code]
		row := []string{code.String(), r.Facility.ShortName, r.Facility.Region,
			number(r.People), number(r.Adjusted), money(r.PriorBudget),
			number(r.GeokOld), number(r.Geok1), number(r.Geok2), number(r.Geok3)}
		for _, v := range sim.Variants {
			b := r.Budgets[v]
			row = append(row, money(b.Raw), money(b.Add1), money(b.Add2), money(b.Subtract), money(b.New),
				strconv.FormatFloat(b.Impact, 'f', 2, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeRebalanceCSV(w *csv.Writer, rb *entities.RebalanceResult) error {
	header := []string{"facility_code", "short_name", "old_budget", "new_budget", "impact",
		"shortfall", "excess", "adjusted_budget", "adjusted_impact"}
	if err := w.Write(header); err != nil {
		return err
	}
	if rb == nil {
		return nil
	}

	for _, code := range entities.SortedCodes(rb.Records) {
		r := rb.Records[code]
		if err := w.Write([]string{
			code.String(), r.Facility.ShortName,
			money(r.OldBudget), money(r.NewBudget), strconv.FormatFloat(r.Impact, 'f', 2, 64),
			money(r.Shortfall), money(r.Excess), money(r.AdjustedBudget),
			strconv.FormatFloat(r.AdjustedImpact, 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeReplicationCSV(w *csv.Writer, result *dto.PipelineResult) error {
	header := []string{"facility_code", "short_name", "people", "people_narrow", "insured", "prefk",
		"geok_old_ns", "geok_old_gsv", "actual_budget",
		"method1_narrow", "method1_family", "method1_total", "method1_deviation",
		"method2_narrow", "method2_family", "method2_total", "method2_deviation"}
	if err := w.Write(header); err != nil {
		return err
	}
	if result.Replication == nil {
		return nil
	}

	records := result.Replication.Records
	for _, code := range entities.SortedCodes(records) {
		r := records[code]
		if err := w.Write([]string{
			code.String(), r.Facility.ShortName,
			number(r.People), number(r.PeopleNarrow), number(r.Insured), number(r.Prefk),
			number(r.GeokOldNS), number(r.GeokOldGSV), money(r.ActualBudget),
			money(r.Method1.Narrow), money(r.Method1.Family), money(r.Method1.Total), number(r.Method1.Deviation),
			money(r.Method2.Narrow), money(r.Method2.Family), money(r.Method2.Total), number(r.Method2.Deviation),
		}); err != nil {
			return err
		}
	}
	return nil
}
