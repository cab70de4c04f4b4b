// Package hospital defines the typed hospital record and the single
// coercion rules used when parsing loosely formatted source data.
package hospital

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OptFloat is an explicit optional float. A zero OptFloat means "absent",
// never "0.0" — scoring substitutes defaults at one documented place only.
type OptFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid OptFloat.
func Float(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// Or returns the value, or def when absent.
func (o OptFloat) Or(def float64) float64 {
	if !o.Valid {
		return def
	}
	return o.Value
}

// Record is one hospital, immutable after index build.
type Record struct {
	ID       string
	Name     string
	District string
	City     string
	State    string

	Latitude  OptFloat
	Longitude OptFloat

	// BloodGroups and Components are canonicalized availability sets.
	// An empty set means the capability is unknown, not empty stock.
	BloodGroups []string
	Components  []string

	UnitsAvailable   OptFloat
	EmergencyService bool
	Open24x7         bool

	BedsAvailable     OptFloat
	DoctorsOnDuty     OptFloat
	SatisfactionPct   OptFloat
	SafetyScorePct    OptFloat
	AvgResponseMin    OptFloat
	LastUpdatedMinAgo OptFloat

	BloodBankLevel string

	// RequestedAt orders duplicate rows for the same ID; zero means unknown.
	RequestedAt time.Time
}

// HasBloodGroup reports whether the group is available. An unknown set is
// treated as compatible.
func (r *Record) HasBloodGroup(group string) bool {
	if len(r.BloodGroups) == 0 {
		return true
	}
	group = CanonicalGroup(group)
	for _, g := range r.BloodGroups {
		if g == group {
			return true
		}
	}
	return false
}

// HasComponent reports whether the component is available, with the same
// unknown-set rule as HasBloodGroup.
func (r *Record) HasComponent(component string) bool {
	if len(r.Components) == 0 {
		return true
	}
	component = CanonicalComponent(component)
	for _, c := range r.Components {
		if c == component {
			return true
		}
	}
	return false
}

// ProfileText renders the compact descriptive text used both for indexing
// and for rerank comparison.
func (r *Record) ProfileText() string {
	bullets := []string{fmt.Sprintf("Hospital: %s", r.Name)}

	var loc []string
	if r.District != "" {
		loc = append(loc, fmt.Sprintf("District: %s", r.District))
	}
	if r.City != "" {
		loc = append(loc, fmt.Sprintf("City: %s", r.City))
	}
	if r.State != "" {
		loc = append(loc, fmt.Sprintf("State: %s", r.State))
	}
	if len(loc) > 0 {
		bullets = append(bullets, strings.Join(loc, ", "))
	}

	if len(r.BloodGroups) > 0 {
		bullets = append(bullets, fmt.Sprintf("Blood groups: %s", strings.Join(r.BloodGroups, ",")))
	}
	if len(r.Components) > 0 {
		bullets = append(bullets, fmt.Sprintf("Components: %s", strings.Join(r.Components, ",")))
	}
	if r.UnitsAvailable.Valid {
		bullets = append(bullets, fmt.Sprintf("Units available: %g", r.UnitsAvailable.Value))
	}
	if r.BloodBankLevel != "" {
		bullets = append(bullets, fmt.Sprintf("Blood bank level: %s", r.BloodBankLevel))
	}
	bullets = append(bullets, fmt.Sprintf("Emergency: %t; 24x7: %t", r.EmergencyService, r.Open24x7))
	if r.BedsAvailable.Valid || r.DoctorsOnDuty.Valid {
		bullets = append(bullets, fmt.Sprintf("Beds: %g; Doctors on duty: %g",
			r.BedsAvailable.Or(0), r.DoctorsOnDuty.Or(0)))
	}
	if r.SatisfactionPct.Valid || r.SafetyScorePct.Valid {
		bullets = append(bullets, fmt.Sprintf("Patient satisfaction: %g%%; Safety score: %g%%",
			r.SatisfactionPct.Or(0), r.SafetyScorePct.Or(0)))
	}
	if r.AvgResponseMin.Valid {
		bullets = append(bullets, fmt.Sprintf("Avg response time (min): %g", r.AvgResponseMin.Value))
	}

	return strings.Join(bullets, " | ")
}

// Payload mirrors the record fields as string values for the vector index.
func (r *Record) Payload() map[string]string {
	p := map[string]string{
		"hospital_id":       r.ID,
		"hospital_name":     r.Name,
		"district":          r.District,
		"city":              r.City,
		"state":             r.State,
		"emergency_service": strconv.FormatBool(r.EmergencyService),
		"open_24x7":         strconv.FormatBool(r.Open24x7),
	}
	putFloat := func(key string, v OptFloat) {
		if v.Valid {
			p[key] = strconv.FormatFloat(v.Value, 'f', -1, 64)
		}
	}
	putFloat("latitude", r.Latitude)
	putFloat("longitude", r.Longitude)
	putFloat("units_available", r.UnitsAvailable)
	putFloat("beds_available", r.BedsAvailable)
	putFloat("doctors_on_duty", r.DoctorsOnDuty)
	putFloat("patient_satisfaction_pct", r.SatisfactionPct)
	putFloat("safety_score_pct", r.SafetyScorePct)
	putFloat("avg_response_min", r.AvgResponseMin)
	putFloat("last_updated_min_ago", r.LastUpdatedMinAgo)
	if len(r.BloodGroups) > 0 {
		p["blood_groups"] = strings.Join(r.BloodGroups, ",")
	}
	if len(r.Components) > 0 {
		p["components"] = strings.Join(r.Components, ",")
	}
	if r.BloodBankLevel != "" {
		p["blood_bank_level"] = r.BloodBankLevel
	}
	return p
}

// ParseBool is the lenient boolean coercion rule: "1", "true", "yes" and "y"
// (any case) are true, everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// ParseFloat is the lenient numeric coercion rule: empty strings, "nan" and
// unparseable values become absent, never zero.
func ParseFloat(s string) OptFloat {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return OptFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return OptFloat{}
	}
	return Float(v)
}

// CanonicalGroup normalizes one blood group token ("o+ " -> "O+").
func CanonicalGroup(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// CanonicalComponent normalizes one component token ("Whole Blood" -> "wholeblood").
func CanonicalComponent(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// SplitGroups parses a comma separated blood group list into the canonical set.
func SplitGroups(s string) []string {
	return splitList(s, CanonicalGroup)
}

// SplitComponents parses a comma separated component list into the canonical set.
func SplitComponents(s string) []string {
	return splitList(s, CanonicalComponent)
}

func splitList(s string, canon func(string) string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if c := canon(part); c != "" {
			out = append(out, c)
		}
	}
	return out
}
