package services

import (
	"fmt"
	"slices"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

// LinkValidator checks the transfer-link table for structural problems
// before it is loaded. Findings are advisory: the simulation treats any
// unresolved link as contributing nothing.
type LinkValidator struct{}

// NewLinkValidator creates a new transfer-link validator
func NewLinkValidator() *LinkValidator {
	return &LinkValidator{}
}

// ValidationResult contains the results of link validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.FacilityCode
	DuplicateCodes []entities.FacilityCode
	SelfLinks      []entities.FacilityCode
	Asymmetric     []entities.FacilityCode
	Dangling       []entities.FacilityCode
	Errors         []string
}

// Valid reports whether no findings were recorded
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateLinks performs structural validation on a set of transfer links
func (v *LinkValidator) ValidateLinks(links []*entities.TransferLink) *ValidationResult {
	result := &ValidationResult{}

	byCode := make(map[entities.FacilityCode]entities.TransferLinks, len(links))
	for _, link := range links {
		if _, exists := byCode[link.Code]; exists {
			result.DuplicateCodes = append(result.DuplicateCodes, link.Code)
			continue
		}
		byCode[link.Code] = link.Links

		for _, target := range linkTargets(link.Links) {
			if target == link.Code {
				result.SelfLinks = append(result.SelfLinks, link.Code)
				break
			}
		}
	}

	result.CyclePaths = v.detectCycles(v.buildDestinationMap(byCode))
	result.HasCycles = len(result.CyclePaths) > 0
	result.Asymmetric = v.detectAsymmetric(byCode)

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("reassignment cycle detected: %v", cycle))
	}
	if len(result.DuplicateCodes) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate link rows for facilities %v", result.DuplicateCodes))
	}
	if len(result.SelfLinks) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("facilities linked to themselves: %v", result.SelfLinks))
	}
	if len(result.Asymmetric) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("destinations without a matching origin: %v", result.Asymmetric))
	}

	return result
}

// ValidateRosterCoverage finds link targets that are not on the roster
func (v *LinkValidator) ValidateRosterCoverage(links []*entities.TransferLink, roster []*entities.Facility) *ValidationResult {
	result := &ValidationResult{}

	known := make(map[entities.FacilityCode]bool, len(roster))
	for _, f := range roster {
		known[f.Code] = true
	}

	seen := make(map[entities.FacilityCode]bool)
	for _, link := range links {
		for _, target := range linkTargets(link.Links) {
			if !known[target] && !seen[target] {
				seen[target] = true
				result.Dangling = append(result.Dangling, target)
			}
		}
	}
	slices.Sort(result.Dangling)

	if len(result.Dangling) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("links reference facilities missing from the roster: %v", result.Dangling))
	}
	return result
}

func linkTargets(l entities.TransferLinks) []entities.FacilityCode {
	var targets []entities.FacilityCode
	for _, p := range []*entities.FacilityCode{l.OriginPrimary, l.OriginSecondary, l.Destination} {
		if p != nil {
			targets = append(targets, *p)
		}
	}
	return targets
}

// buildDestinationMap creates a map of facility -> destination edges
func (v *LinkValidator) buildDestinationMap(byCode map[entities.FacilityCode]entities.TransferLinks) map[entities.FacilityCode]entities.FacilityCode {
	edges := make(map[entities.FacilityCode]entities.FacilityCode)
	for code, links := range byCode {
		if links.Destination != nil && *links.Destination != code {
			edges[code] = *links.Destination
		}
	}
	return edges
}

// detectCycles walks destination chains; each facility has at most one
// outgoing edge so a chain either terminates or closes a cycle.
func (v *LinkValidator) detectCycles(edges map[entities.FacilityCode]entities.FacilityCode) [][]entities.FacilityCode {
	visited := make(map[entities.FacilityCode]bool)
	var cycles [][]entities.FacilityCode

	for _, start := range entities.SortedCodes(edges) {
		if visited[start] {
			continue
		}

		onPath := make(map[entities.FacilityCode]int)
		var path []entities.FacilityCode
		current, ok := start, true
		for ok && !visited[current] {
			visited[current] = true
			onPath[current] = len(path)
			path = append(path, current)
			current, ok = edges[current]
			if idx, closed := onPath[current]; ok && closed {
				cycle := slices.Clone(path[idx:])
				cycles = append(cycles, append(cycle, current))
				break
			}
		}
	}
	return cycles
}

// detectAsymmetric finds facilities whose destination does not list them as an origin
func (v *LinkValidator) detectAsymmetric(byCode map[entities.FacilityCode]entities.TransferLinks) []entities.FacilityCode {
	var asymmetric []entities.FacilityCode
	for _, code := range entities.SortedCodes(byCode) {
		links := byCode[code]
		if links.Destination == nil || *links.Destination == code {
			continue
		}
		dest, ok := byCode[*links.Destination]
		if !ok {
			continue
		}
		if !slices.Contains(linkTargets(entities.TransferLinks{
			OriginPrimary:   dest.OriginPrimary,
			OriginSecondary: dest.OriginSecondary,
		}), code) {
			asymmetric = append(asymmetric, code)
		}
	}
	return asymmetric
}
