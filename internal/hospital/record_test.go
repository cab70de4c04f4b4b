package hospital

import (
	"strings"
	"testing"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{" y ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"nan", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseBool(tt.input); got != tt.expected {
				t.Errorf("ParseBool(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		value float64
	}{
		{"plain", "12.5", true, 12.5},
		{"integer", "40", true, 40},
		{"padded", " 3 ", true, 3},
		{"empty", "", false, 0},
		{"nan", "NaN", false, 0},
		{"garbage", "abc", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFloat(tt.input)
			if got.Valid != tt.valid {
				t.Fatalf("ParseFloat(%q).Valid = %v, expected %v", tt.input, got.Valid, tt.valid)
			}
			if got.Valid && got.Value != tt.value {
				t.Errorf("ParseFloat(%q) = %v, expected %v", tt.input, got.Value, tt.value)
			}
		})
	}
}

func TestSplitGroups(t *testing.T) {
	groups := SplitGroups("o+, A-,  b+ ")
	expected := []string{"O+", "A-", "B+"}
	if len(groups) != len(expected) {
		t.Fatalf("expected %d groups, got %d: %v", len(expected), len(groups), groups)
	}
	for i := range expected {
		if groups[i] != expected[i] {
			t.Errorf("group %d = %q, expected %q", i, groups[i], expected[i])
		}
	}

	if SplitGroups("") != nil {
		t.Error("expected nil for empty list")
	}
}

func TestHasBloodGroup_UnknownSetIsCompatible(t *testing.T) {
	rec := Record{ID: "H1"}
	if !rec.HasBloodGroup("O+") {
		t.Error("unknown availability set should be treated as compatible")
	}

	rec.BloodGroups = SplitGroups("A+,B+")
	if rec.HasBloodGroup("O+") {
		t.Error("O+ should not match declared set A+,B+")
	}
	if !rec.HasBloodGroup("a+") {
		t.Error("group matching should be case-insensitive")
	}
}

func TestHasComponent(t *testing.T) {
	rec := Record{Components: SplitComponents("RBC, Plasma, Whole Blood")}
	if !rec.HasComponent("rbc") {
		t.Error("rbc should match RBC")
	}
	if !rec.HasComponent("Whole Blood") {
		t.Error("component matching should ignore spaces")
	}
	if rec.HasComponent("platelets") {
		t.Error("platelets should not match")
	}
}

func TestProfileText(t *testing.T) {
	rec := Record{
		ID:               "H1",
		Name:             "City General",
		City:             "Mumbai",
		State:            "Maharashtra",
		BloodGroups:      SplitGroups("O+,A+"),
		Components:       SplitComponents("RBC"),
		UnitsAvailable:   Float(12),
		EmergencyService: true,
		SafetyScorePct:   Float(92),
	}

	text := rec.ProfileText()

	for _, want := range []string{
		"Hospital: City General",
		"City: Mumbai, State: Maharashtra",
		"Blood groups: O+,A+",
		"Components: rbc",
		"Units available: 12",
		"Emergency: true; 24x7: false",
		"Safety score: 92%",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("profile text missing %q:\n%s", want, text)
		}
	}
}

func TestProfileText_Deterministic(t *testing.T) {
	rec := Record{ID: "H1", Name: "A", City: "Pune"}
	if rec.ProfileText() != rec.ProfileText() {
		t.Error("profile text should be deterministic")
	}
}

func TestPayloadOmitsAbsentFields(t *testing.T) {
	rec := Record{ID: "H1", Name: "A"}
	p := rec.Payload()

	if _, ok := p["units_available"]; ok {
		t.Error("absent units_available should not be in payload")
	}
	if p["hospital_id"] != "H1" {
		t.Errorf("expected hospital_id H1, got %q", p["hospital_id"])
	}
	if p["emergency_service"] != "false" {
		t.Errorf("expected emergency_service false, got %q", p["emergency_service"])
	}
}
