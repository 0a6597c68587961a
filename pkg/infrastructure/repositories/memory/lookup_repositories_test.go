package memory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

func TestGeographyRepository_GetDistrict(t *testing.T) {
	repo := NewGeographyRepository()
	err := repo.LoadDistricts([]*entities.DistrictGeography{
		{District: 41706242000, Altitude: 1.2, Density: 40, Rural: 1.1, Smalltown: 1.0},
	})
	if err != nil {
		t.Fatalf("Failed to load districts: %v", err)
	}

	d, err := repo.GetDistrict(41706242000)
	if err != nil {
		t.Fatalf("Failed to get district: %v", err)
	}
	if d.Altitude != 1.2 || d.Density != 40 {
		t.Errorf("Unexpected district values: %+v", d)
	}

	if _, err := repo.GetDistrict(1); !errors.Is(err, entities.ErrMissingJoinKey) {
		t.Errorf("Expected ErrMissingJoinKey for unknown district, got %v", err)
	}

	if repo.Count() != 1 {
		t.Errorf("Expected 1 district, got %d", repo.Count())
	}
}

func TestTransferRepository_GetLinks(t *testing.T) {
	repo := NewTransferRepository()
	err := repo.LoadLinks([]*entities.TransferLink{
		{Code: 200, Links: entities.TransferLinks{OriginPrimary: entities.CodePtr(100)}},
	})
	if err != nil {
		t.Fatalf("Failed to load links: %v", err)
	}

	links, ok := repo.GetLinks(200)
	if !ok {
		t.Fatal("Expected links for facility 200")
	}
	if links.OriginPrimary == nil || *links.OriginPrimary != 100 {
		t.Errorf("Expected origin-1 link to 100, got %v", links.OriginPrimary)
	}
	if links.Destination != nil {
		t.Errorf("Expected nil destination, got %v", *links.Destination)
	}

	if _, ok := repo.GetLinks(300); ok {
		t.Error("Expected no links for facility 300")
	}
}

func TestBudgetRepository_LoadBudgets_ReplacesDuplicate(t *testing.T) {
	repo := NewBudgetRepository(2)
	err := repo.LoadBudgets([]*entities.PriorBudget{
		{Code: 100, PrimaryCare: decimal.NewFromInt(10)},
		{Code: 100, PrimaryCare: decimal.NewFromInt(20)},
	})
	if err != nil {
		t.Fatalf("Failed to load budgets: %v", err)
	}

	all, _ := repo.GetAllBudgets()
	if len(all) != 1 {
		t.Fatalf("Expected 1 budget row, got %d", len(all))
	}

	b, err := repo.GetBudget(100)
	if err != nil {
		t.Fatalf("Failed to get budget: %v", err)
	}
	if !b.PrimaryCare.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected later row to win, got %s", b.PrimaryCare)
	}

	if !b.PrimaryCareUnits().Equal(decimal.NewFromInt(20000)) {
		t.Errorf("Expected 20000 currency units, got %s", b.PrimaryCareUnits())
	}

	if _, err := repo.GetBudget(999); !errors.Is(err, entities.ErrMissingJoinKey) {
		t.Errorf("Expected ErrMissingJoinKey, got %v", err)
	}
}
