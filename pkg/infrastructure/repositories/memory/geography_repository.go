package memory

import (
	"fmt"

	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/domain/repositories"
)

// GeographyRepository provides in-memory district indicator storage
type GeographyRepository struct {
	districts map[entities.DistrictCode]entities.DistrictGeography
}

// NewGeographyRepository creates a new in-memory geography repository
func NewGeographyRepository() *GeographyRepository {
	return &GeographyRepository{
		districts: make(map[entities.DistrictCode]entities.DistrictGeography),
	}
}

// Verify interface compliance
var _ repositories.GeographyRepository = (*GeographyRepository)(nil)

// LoadDistricts loads district rows; a later row for the same district wins
func (r *GeographyRepository) LoadDistricts(districts []*entities.DistrictGeography) error {
	for _, d := range districts {
		r.districts[d.District] = *d
	}
	return nil
}

// GetDistrict returns the indicators of a district
func (r *GeographyRepository) GetDistrict(code entities.DistrictCode) (*entities.DistrictGeography, error) {
	d, exists := r.districts[code]
	if !exists {
		return nil, fmt.Errorf("district %d not in geography table: %w", code, entities.ErrMissingJoinKey)
	}
	return &d, nil
}

// Count returns the number of districts stored
func (r *GeographyRepository) Count() int {
	return len(r.districts)
}
