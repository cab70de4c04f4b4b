package service

import (
	"strings"
	"testing"

	"github.com/bloodroute/matchd/internal/hospital"
)

var defaultWeights = blendWeights{CityPriority: 0.35, DistancePenalty: 0.10}

func scoredCandidate(mutate func(*candidate)) float64 {
	c := candidate{rec: baseRecord("H1", "Mumbai"), relevance: 0.5}
	if mutate != nil {
		mutate(&c)
	}
	return compositeScore(&c, baseRequest(), defaultWeights)
}

func TestCompositeScore_MonotoneInEachSignal(t *testing.T) {
	base := scoredCandidate(nil)

	higher := []struct {
		name   string
		mutate func(*candidate)
	}{
		{"relevance", func(c *candidate) { c.relevance = 0.9 }},
		{"safety", func(c *candidate) { c.rec.SafetyScorePct = hospital.Float(95) }},
		{"satisfaction", func(c *candidate) { c.rec.SatisfactionPct = hospital.Float(95) }},
		{"beds", func(c *candidate) { c.rec.BedsAvailable = hospital.Float(40) }},
		{"doctors", func(c *candidate) { c.rec.DoctorsOnDuty = hospital.Float(8) }},
		{"responsiveness", func(c *candidate) { c.rec.AvgResponseMin = hospital.Float(5) }},
	}
	for _, tt := range higher {
		if got := scoredCandidate(tt.mutate); got <= base {
			t.Errorf("%s: raising the signal must raise the score (%f <= %f)", tt.name, got, base)
		}
	}
}

func TestCompositeScore_CapsCapacitySignals(t *testing.T) {
	atCap := scoredCandidate(func(c *candidate) {
		c.rec.BedsAvailable = hospital.Float(50)
		c.rec.DoctorsOnDuty = hospital.Float(10)
	})
	overCap := scoredCandidate(func(c *candidate) {
		c.rec.BedsAvailable = hospital.Float(500)
		c.rec.DoctorsOnDuty = hospital.Float(100)
	})
	if atCap != overCap {
		t.Errorf("capacity beyond the caps must not add score: %f vs %f", atCap, overCap)
	}
}

func TestCompositeScore_CityMatchWeight(t *testing.T) {
	match := scoredCandidate(nil)
	noMatch := scoredCandidate(func(c *candidate) { c.rec.City = "Delhi" })

	diff := match - noMatch
	if diff < 0.349 || diff > 0.351 {
		t.Errorf("city match must add exactly the configured weight, got diff %f", diff)
	}
}

func TestCompositeScore_DistancePenalty(t *testing.T) {
	within := scoredCandidate(func(c *candidate) { c.distance = hospital.Float(4) })
	free := scoredCandidate(nil)
	if within != free {
		t.Errorf("distance under 5 km must not be penalized: %f vs %f", within, free)
	}

	far := scoredCandidate(func(c *candidate) { c.distance = hospital.Float(25) })
	// (25-5)/20 = 1.0 penalty units at weight 0.10.
	diff := free - far
	if diff < 0.099 || diff > 0.101 {
		t.Errorf("unexpected distance penalty: %f", diff)
	}
}

func TestCompositeScore_AbsentSignals(t *testing.T) {
	// Absent quality and capacity fields contribute zero; absent response
	// time contributes its 30 minute default.
	c := candidate{rec: hospital.Record{ID: "H", City: "Delhi"}, relevance: 0}
	got := compositeScore(&c, baseRequest(), defaultWeights)

	want := 0.07 * 0.5
	if got < want-1e-9 || got > want+1e-9 {
		t.Errorf("expected only the default responsiveness term, got %f want %f", got, want)
	}
}

func TestBuildReasons_FromRawFields(t *testing.T) {
	c := candidate{
		rec: hospital.Record{
			ID:               "H1",
			EmergencyService: true,
			Open24x7:         true,
			SafetyScorePct:   hospital.Float(92),
			SatisfactionPct:  hospital.Float(81),
			AvgResponseMin:   hospital.Float(14),
			UnitsAvailable:   hospital.Float(12),
			BedsAvailable:    hospital.Float(120),
		},
		distance: hospital.Float(3.24),
	}

	r := buildReasons(&c)
	if len(r) != 5 {
		t.Fatalf("reasons must be capped at 5, got %d: %v", len(r), r)
	}
	want := []string{
		"Emergency services available",
		"Open 24x7",
		"Safety score 92%",
		"Patient satisfaction 81%",
		"Avg response time 14 min",
	}
	for i := range want {
		if r[i] != want[i] {
			t.Errorf("reason %d: got %q want %q", i, r[i], want[i])
		}
	}
}

func TestBuildReasons_AbsentFieldsOmitted(t *testing.T) {
	c := candidate{rec: hospital.Record{ID: "H1"}}

	if r := buildReasons(&c); len(r) != 0 {
		t.Errorf("no present fields, expected no reasons, got %v", r)
	}
}

func TestBuildReasons_Distance(t *testing.T) {
	c := candidate{rec: hospital.Record{ID: "H1"}, distance: hospital.Float(3.24)}

	r := buildReasons(&c)
	if len(r) != 1 || !strings.Contains(r[0], "~3.2 km away") {
		t.Errorf("expected distance reason, got %v", r)
	}
}
