package memory

import (
	"fmt"

	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/domain/repositories"
)

// RosterRepository provides in-memory facility roster storage
type RosterRepository struct {
	facilities []entities.Facility
	byCode     map[entities.FacilityCode]int
}

// NewRosterRepository creates a new in-memory roster repository
func NewRosterRepository(expectedFacilities int) *RosterRepository {
	return &RosterRepository{
		facilities: make([]entities.Facility, 0, expectedFacilities),
		byCode:     make(map[entities.FacilityCode]int, expectedFacilities),
	}
}

// Verify interface compliance
var _ repositories.RosterRepository = (*RosterRepository)(nil)

// LoadFacilities loads facilities into the repository
func (r *RosterRepository) LoadFacilities(facilities []*entities.Facility) error {
	for _, f := range facilities {
		if err := r.SaveFacility(f); err != nil {
			return err
		}
	}
	return nil
}

// SaveFacility adds a facility, rejecting duplicate codes
func (r *RosterRepository) SaveFacility(f *entities.Facility) error {
	if _, exists := r.byCode[f.Code]; exists {
		return fmt.Errorf("facility %d already exists in roster", f.Code)
	}
	r.byCode[f.Code] = len(r.facilities)
	r.facilities = append(r.facilities, *f)
	return nil
}

// GetFacility returns roster metadata for a facility code
func (r *RosterRepository) GetFacility(code entities.FacilityCode) (*entities.Facility, error) {
	index, exists := r.byCode[code]
	if !exists {
		return nil, fmt.Errorf("facility %d not in roster: %w", code, entities.ErrMissingJoinKey)
	}
	return &r.facilities[index], nil
}

// GetAllFacilities returns all facilities in load order
func (r *RosterRepository) GetAllFacilities() ([]*entities.Facility, error) {
	facilities := make([]*entities.Facility, 0, len(r.facilities))
	for i := range r.facilities {
		facilities = append(facilities, &r.facilities[i])
	}
	return facilities, nil
}
