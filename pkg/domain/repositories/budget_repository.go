package repositories

import "github.com/vsinha/capitation/pkg/domain/entities"

// BudgetRepository provides prior-year budgets
type BudgetRepository interface {
	GetBudget(code entities.FacilityCode) (*entities.PriorBudget, error)
	GetAllBudgets() ([]*entities.PriorBudget, error)
	LoadBudgets(budgets []*entities.PriorBudget) error
}
