package memory

import (
	"errors"
	"testing"

	"github.com/vsinha/capitation/pkg/domain/entities"
)

func TestRosterRepository_SaveFacility(t *testing.T) {
	repo := NewRosterRepository(10)

	facility := &entities.Facility{
		Code:         620371,
		Region:       "Ошская область",
		DistrictCode: 41706242000000000,
		ShortName:    "ЦСМ Ноокат",
		Insured:      1200,
	}

	if err := repo.SaveFacility(facility); err != nil {
		t.Fatalf("Failed to save facility: %v", err)
	}

	retrieved, err := repo.GetFacility(620371)
	if err != nil {
		t.Fatalf("Failed to get facility: %v", err)
	}

	if retrieved.ShortName != facility.ShortName {
		t.Errorf("Expected name %s, got %s", facility.ShortName, retrieved.ShortName)
	}

	if retrieved.DistrictCode != facility.DistrictCode {
		t.Errorf("Expected district %d, got %d", facility.DistrictCode, retrieved.DistrictCode)
	}

	if retrieved.Insured != facility.Insured {
		t.Errorf("Expected insured %f, got %f", facility.Insured, retrieved.Insured)
	}
}

func TestRosterRepository_SaveFacility_Duplicate(t *testing.T) {
	repo := NewRosterRepository(2)

	if err := repo.SaveFacility(&entities.Facility{Code: 100}); err != nil {
		t.Fatalf("Failed to save facility first time: %v", err)
	}

	if err := repo.SaveFacility(&entities.Facility{Code: 100, ShortName: "again"}); err == nil {
		t.Error("Expected error when saving duplicate facility code")
	}
}

func TestRosterRepository_GetFacility_Missing(t *testing.T) {
	repo := NewRosterRepository(0)

	_, err := repo.GetFacility(42)
	if !errors.Is(err, entities.ErrMissingJoinKey) {
		t.Errorf("Expected ErrMissingJoinKey, got %v", err)
	}
}

func TestRosterRepository_GetAllFacilities(t *testing.T) {
	repo := NewRosterRepository(3)
	err := repo.LoadFacilities([]*entities.Facility{{Code: 3}, {Code: 1}, {Code: 2}})
	if err != nil {
		t.Fatalf("Failed to load facilities: %v", err)
	}

	all, err := repo.GetAllFacilities()
	if err != nil {
		t.Fatalf("Failed to list facilities: %v", err)
	}

	if len(all) != 3 {
		t.Fatalf("Expected 3 facilities, got %d", len(all))
	}

	if all[0].Code != 3 {
		t.Errorf("Expected load order to be preserved, first code %d", all[0].Code)
	}
}
