package memory

import (
	"github.com/vsinha/capitation/pkg/domain/entities"
	"github.com/vsinha/capitation/pkg/domain/repositories"
)

// TransferRepository provides in-memory transfer link storage
type TransferRepository struct {
	links map[entities.FacilityCode]entities.TransferLinks
}

// NewTransferRepository creates a new in-memory transfer repository
func NewTransferRepository() *TransferRepository {
	return &TransferRepository{
		links: make(map[entities.FacilityCode]entities.TransferLinks),
	}
}

// Verify interface compliance
var _ repositories.TransferRepository = (*TransferRepository)(nil)

// LoadLinks loads transfer rows keyed by facility code
func (r *TransferRepository) LoadLinks(links []*entities.TransferLink) error {
	for _, l := range links {
		r.links[l.Code] = l.Links
	}
	return nil
}

// GetLinks returns the links of a facility and whether any row exists
func (r *TransferRepository) GetLinks(code entities.FacilityCode) (entities.TransferLinks, bool) {
	links, exists := r.links[code]
	return links, exists
}

// Count returns the number of facilities with a transfer row
func (r *TransferRepository) Count() int {
	return len(r.links)
}
