package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vsinha/capitation/pkg/capitation"
	"github.com/vsinha/capitation/pkg/domain/entities"
	testhelpers "github.com/vsinha/capitation/pkg/infrastructure/testing"
	"github.com/vsinha/capitation/pkg/interfaces/cli/output"
)

func main() {
	ctx := context.Background()

	// Sample national dataset: five facilities across three districts
	inputs := capitation.Inputs{
		Rows:      testhelpers.BuildSampleDataset().Rows,
		Districts: testhelpers.SampleDistricts(),
		Links:     testhelpers.SampleLinks(),
		Budgets:   testhelpers.SampleBudgets(),
	}

	fmt.Println("Running capitation pipeline on the sample dataset...")
	fmt.Printf("Input rows: %d, districts: %d, budgets: %d\n",
		len(inputs.Rows), len(inputs.Districts), len(inputs.Budgets))
	fmt.Println()

	result, err := capitation.NewEngine().Run(ctx, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline failed: %v\n", err)
		os.Exit(1)
	}

	if err := output.Generate(result, output.Config{Format: "text", Verbose: true}); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}

	// Per-facility view of the rebalanced variant
	if rb := result.Rebalance; rb != nil {
		fmt.Printf("%-10s %-32s %12s %12s %8s\n", "Code", "Facility", "Old", "Adjusted", "Impact")
		for _, code := range entities.SortedCodes(rb.Records) {
			r := rb.Records[code]
			fmt.Printf("%-10s %-32s %12.0f %12.0f %7.2f%%\n",
				code, r.Facility.DisplayName(), r.OldBudget, r.AdjustedBudget, r.AdjustedImpact)
		}
	}
}
