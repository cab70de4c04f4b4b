package service

import (
	"fmt"
	"math"
)

// Fixed blend weights. Relevance dominates; quality, capacity and
// responsiveness signals refine the ordering among similar candidates.
const (
	weightRelevance      = 0.55
	weightSafety         = 0.10
	weightSatisfaction   = 0.10
	weightBeds           = 0.08
	weightDoctors        = 0.05
	weightResponsiveness = 0.07

	bedsCap        = 50.0
	doctorsCap     = 10.0
	responseCapMin = 60.0

	// Distance penalty kicks in past this radius and grows with this slope.
	penaltyFreeKM  = 5.0
	penaltySlopeKM = 20.0
	defaultRespMin = 30.0
	maxReasons     = 5
)

// blendWeights are the configurable locality weights of the composite score.
type blendWeights struct {
	CityPriority    float64
	DistancePenalty float64
}

// compositeScore blends relevance with normalized quality, capacity and
// locality signals. Absent numeric fields contribute their documented
// defaults (zero, except average response time which defaults to 30 min).
func compositeScore(c *candidate, req *SuggestRequest, w blendWeights) float64 {
	safety := c.rec.SafetyScorePct.Or(0) / 100
	satisfaction := c.rec.SatisfactionPct.Or(0) / 100
	beds := math.Min(c.rec.BedsAvailable.Or(0)/bedsCap, 1)
	doctors := math.Min(c.rec.DoctorsOnDuty.Or(0)/doctorsCap, 1)
	responsiveness := 1 - math.Min(c.rec.AvgResponseMin.Or(defaultRespMin)/responseCapMin, 1)

	cityMatch := 0.0
	if cityMatches(c.rec.City, req.UserCity) {
		cityMatch = 1.0
	}

	distPenalty := 0.0
	if c.distance.Valid {
		distPenalty = math.Max(0, c.distance.Value-penaltyFreeKM) / penaltySlopeKM
	}

	return weightRelevance*c.relevance +
		weightSafety*safety +
		weightSatisfaction*satisfaction +
		weightBeds*beds +
		weightDoctors*doctors +
		weightResponsiveness*responsiveness +
		w.CityPriority*cityMatch -
		w.DistancePenalty*distPenalty
}

// buildReasons generates the explanation fragments from the raw record
// fields, never from the weighted score. Absent or zero fields produce no
// reason; the list is capped at five entries.
func buildReasons(c *candidate) []string {
	var r []string
	if c.rec.EmergencyService {
		r = append(r, "Emergency services available")
	}
	if c.rec.Open24x7 {
		r = append(r, "Open 24x7")
	}
	if c.rec.SafetyScorePct.Valid && c.rec.SafetyScorePct.Value != 0 {
		r = append(r, fmt.Sprintf("Safety score %d%%", int(c.rec.SafetyScorePct.Value)))
	}
	if c.rec.SatisfactionPct.Valid && c.rec.SatisfactionPct.Value != 0 {
		r = append(r, fmt.Sprintf("Patient satisfaction %d%%", int(c.rec.SatisfactionPct.Value)))
	}
	if c.rec.AvgResponseMin.Valid && c.rec.AvgResponseMin.Value != 0 {
		r = append(r, fmt.Sprintf("Avg response time %d min", int(c.rec.AvgResponseMin.Value)))
	}
	if c.rec.UnitsAvailable.Valid && c.rec.UnitsAvailable.Value != 0 {
		r = append(r, fmt.Sprintf("Units available %d", int(c.rec.UnitsAvailable.Value)))
	}
	if c.rec.BedsAvailable.Valid && c.rec.BedsAvailable.Value != 0 {
		r = append(r, fmt.Sprintf("Beds %d", int(c.rec.BedsAvailable.Value)))
	}
	if c.distance.Valid {
		r = append(r, fmt.Sprintf("~%.1f km away", c.distance.Value))
	}
	if len(r) > maxReasons {
		r = r[:maxReasons]
	}
	return r
}

// round2 and round4 round for the response payload only; internal ordering
// always uses the full-precision score.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
