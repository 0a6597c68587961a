package memory

import (
	"fmt"

	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/domain/repositories"
)

// BudgetRepository provides in-memory prior-year budget storage
type BudgetRepository struct {
	budgets []entities.PriorBudget
	byCode  map[entities.FacilityCode]int
}

// NewBudgetRepository creates a new in-memory budget repository
func NewBudgetRepository(expectedFacilities int) *BudgetRepository {
	return &BudgetRepository{
		budgets: make([]entities.PriorBudget, 0, expectedFacilities),
		byCode:  make(map[entities.FacilityCode]int, expectedFacilities),
	}
}

// Verify interface compliance
var _ repositories.BudgetRepository = (*BudgetRepository)(nil)

// LoadBudgets loads budget rows; a repeated code replaces the earlier row
func (r *BudgetRepository) LoadBudgets(budgets []*entities.PriorBudget) error {
	for _, b := range budgets {
		if index, exists := r.byCode[b.Code]; exists {
			r.budgets[index] = *b
			continue
		}
		r.byCode[b.Code] = len(r.budgets)
		r.budgets = append(r.budgets, *b)
	}
	return nil
}

// GetBudget returns the prior-year budget of a facility
func (r *BudgetRepository) GetBudget(code entities.FacilityCode) (*entities.PriorBudget, error) {
	index, exists := r.byCode[code]
	if !exists {
		return nil, fmt.Errorf("facility %d not in budget table: %w", code, entities.ErrMissingJoinKey)
	}
	return &r.budgets[index], nil
}

// GetAllBudgets returns all budgets in load order
func (r *BudgetRepository) GetAllBudgets() ([]*entities.PriorBudget, error) {
	budgets := make([]*entities.PriorBudget, 0, len(r.budgets))
	for i := range r.budgets {
		budgets = append(budgets, &r.budgets[i])
	}
	return budgets, nil
}
