package repositories

import "github.com/vsinha/capitation/pkg/domain/entities"

// GeographyRepository provides district-level remoteness indicators
type GeographyRepository interface {
	GetDistrict(code entities.DistrictCode) (*entities.DistrictGeography, error)
	LoadDistricts(districts []*entities.DistrictGeography) error
	Count() int
}
