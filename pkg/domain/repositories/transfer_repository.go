package repositories

import "github.com/vsinha/capitation/pkg/domain/entities"

// TransferRepository provides inter-facility reassignment links
type TransferRepository interface {
	GetLinks(code entities.FacilityCode) (entities.TransferLinks, bool)
	LoadLinks(links []*entities.TransferLink) error
	Count() int
}
