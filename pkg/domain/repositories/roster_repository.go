package repositories

import "github.com/vsinha/capitation/pkg/domain/entities"

// RosterRepository provides access to facility metadata
type RosterRepository interface {
	GetFacility(code entities.FacilityCode) (*entities.Facility, error)
	GetAllFacilities() ([]*entities.Facility, error)
	LoadFacilities(facilities []*entities.Facility) error
}
