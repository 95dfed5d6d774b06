package domain

import (
	"errors"
	"testing"
)

func TestDefectValidate(t *testing.T) {
	tests := []struct {
		name    string
		defect  Defect
		wantErr bool
	}{
		{
			name:   "valid",
			defect: Defect{ID: "DEF-1", Status: StatusNew, Analysis: Analysis{Confidence: 0.5}},
		},
		{
			name:    "missing id",
			defect:  Defect{Status: StatusNew},
			wantErr: true,
		},
		{
			name:    "unknown status",
			defect:  Defect{ID: "DEF-1", Status: "Archived"},
			wantErr: true,
		},
		{
			name:    "confidence above one",
			defect:  Defect{ID: "DEF-1", Status: StatusClosed, Analysis: Analysis{Confidence: 1.2}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.defect.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDefect) {
				t.Errorf("expected ErrInvalidDefect, got %v", err)
			}
		})
	}
}

func TestValidateDefects_Duplicate(t *testing.T) {
	defects := []Defect{
		{ID: "A", Status: StatusNew},
		{ID: "A", Status: StatusReviewing},
	}
	if err := ValidateDefects(defects); !errors.Is(err, ErrInvalidDefect) {
		t.Fatalf("expected duplicate id to be rejected, got %v", err)
	}
}

func TestParseUserRole(t *testing.T) {
	tests := []struct {
		in      string
		want    UserRole
		wantErr bool
	}{
		{in: "EQUIPMENT_ENG", want: RoleEquipmentEng},
		{in: " yield_eng ", want: RoleYieldEng},
		{in: "ADMIN", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUserRole(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUserRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseUserRole(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if !RoleEquipmentEng.Trusted() || RoleYieldEng.Trusted() || UserRole("GUEST").Trusted() {
		t.Error("only EQUIPMENT_ENG should be trusted")
	}
}
