package services

import (
	"slices"
	"testing"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

func link(code entities.FacilityCode, origin1, destination entities.FacilityCode) *entities.TransferLink {
	l := &entities.TransferLink{Code: code}
	if origin1 != 0 {
		l.Links.OriginPrimary = entities.CodePtr(origin1)
	}
	if destination != 0 {
		l.Links.Destination = entities.CodePtr(destination)
	}
	return l
}

func TestLinkValidator_ValidChain(t *testing.T) {
	links := []*entities.TransferLink{
		link(101, 0, 103),
		link(103, 101, 0),
	}

	result := NewLinkValidator().ValidateLinks(links)

	if !result.Valid() {
		t.Errorf("Expected valid links, got errors: %v", result.Errors)
	}
	if result.HasCycles {
		t.Error("Expected no cycles")
	}
}

func TestLinkValidator_DetectCycle(t *testing.T) {
	// 101 -> 102 -> 103 -> 101
	links := []*entities.TransferLink{
		link(101, 103, 102),
		link(102, 101, 103),
		link(103, 102, 101),
	}

	result := NewLinkValidator().ValidateLinks(links)

	if !result.HasCycles {
		t.Fatal("Expected cycle to be detected")
	}
	if len(result.CyclePaths) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(result.CyclePaths))
	}
	cycle := result.CyclePaths[0]
	if len(cycle) != 4 || cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("Expected closed cycle of 3 facilities, got %v", cycle)
	}
	if len(result.Asymmetric) != 0 {
		t.Errorf("Expected symmetric links, got %v", result.Asymmetric)
	}
}

func TestLinkValidator_DuplicatesAndSelfLinks(t *testing.T) {
	links := []*entities.TransferLink{
		link(101, 0, 101),
		link(102, 0, 0),
		link(102, 0, 0),
	}

	result := NewLinkValidator().ValidateLinks(links)

	if !slices.Equal(result.DuplicateCodes, []entities.FacilityCode{102}) {
		t.Errorf("Expected duplicate 102, got %v", result.DuplicateCodes)
	}
	if !slices.Equal(result.SelfLinks, []entities.FacilityCode{101}) {
		t.Errorf("Expected self link 101, got %v", result.SelfLinks)
	}
	if result.HasCycles {
		t.Error("Expected self links not to count as cycles")
	}
	if result.Valid() {
		t.Error("Expected validation errors")
	}
}

func TestLinkValidator_Asymmetric(t *testing.T) {
	links := []*entities.TransferLink{
		link(101, 0, 103),
		link(103, 0, 0),
	}

	result := NewLinkValidator().ValidateLinks(links)

	if !slices.Equal(result.Asymmetric, []entities.FacilityCode{101}) {
		t.Errorf("Expected asymmetric 101, got %v", result.Asymmetric)
	}
}

func TestLinkValidator_RosterCoverage(t *testing.T) {
	links := []*entities.TransferLink{
		link(101, 0, 999),
		link(103, 998, 0),
		link(104, 0, 999),
	}
	roster := []*entities.Facility{{Code: 101}, {Code: 103}}

	result := NewLinkValidator().ValidateRosterCoverage(links, roster)

	if !slices.Equal(result.Dangling, []entities.FacilityCode{998, 999}) {
		t.Errorf("Expected dangling [998 999], got %v", result.Dangling)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error, got %d", len(result.Errors))
	}
}
