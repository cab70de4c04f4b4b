package service

import (
	"math"
	"strings"

	"github.com/bloodroute/matchd/internal/hospital"
	"github.com/bloodroute/matchd/internal/index"
)

// Mean Earth radius in kilometers.
const earthRadiusKM = 6371.0088

// candidate is a retrieval hit enriched with per-request state. Candidates
// never outlive one request.
type candidate struct {
	rec       hospital.Record
	distance  hospital.OptFloat
	retrieval float32
	relevance float64
	composite float64
	reasons   []string
}

// filterCandidates applies the hard constraints and the optional strict
// radius cutoff. Distance is computed once here and carried on the candidate.
func filterCandidates(hits []index.Hit, req *SuggestRequest) []candidate {
	out := make([]candidate, 0, len(hits))
	for _, hit := range hits {
		if !passesHardFilter(&hit.Record, req) {
			continue
		}

		dist := distanceTo(&hit.Record, req)

		// Strict radius only when the request asked for one; unknown
		// distance never excludes.
		if req.WithinKM != nil && dist.Valid && dist.Value > *req.WithinKM {
			continue
		}

		out = append(out, candidate{
			rec:       hit.Record,
			distance:  dist,
			retrieval: hit.Score,
		})
	}
	return out
}

// passesHardFilter enforces the non-negotiable constraints. Unknown
// capability sets do not exclude; unknown stock does not exclude.
func passesHardFilter(rec *hospital.Record, req *SuggestRequest) bool {
	if req.Require24x7 && !rec.Open24x7 {
		return false
	}
	if req.RequireEmergencyService && !rec.EmergencyService {
		return false
	}
	if !rec.HasBloodGroup(req.BloodGroup) {
		return false
	}
	if !rec.HasComponent(req.Component) {
		return false
	}
	if rec.UnitsAvailable.Valid && rec.UnitsAvailable.Value < float64(req.UnitsNeeded) {
		return false
	}
	return true
}

// distanceTo computes the great-circle distance from the request's
// coordinates to the hospital, absent when either side lacks coordinates.
func distanceTo(rec *hospital.Record, req *SuggestRequest) hospital.OptFloat {
	if req.UserLat == nil || req.UserLon == nil || !rec.Latitude.Valid || !rec.Longitude.Valid {
		return hospital.OptFloat{}
	}
	return hospital.Float(haversineKM(*req.UserLat, *req.UserLon, rec.Latitude.Value, rec.Longitude.Value))
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// prioritizeCity stably partitions same-city candidates to the front so the
// reranker sees them first. Non-matching candidates are kept; scoring
// rewards the same signal again independently.
func prioritizeCity(candidates []candidate, userCity string) []candidate {
	if strings.TrimSpace(userCity) == "" {
		return candidates
	}
	same := make([]candidate, 0, len(candidates))
	other := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if cityMatches(c.rec.City, userCity) {
			same = append(same, c)
		} else {
			other = append(other, c)
		}
	}
	return append(same, other...)
}

// cityMatches compares cities case-insensitively after trimming. Absent
// cities never match.
func cityMatches(hospitalCity, userCity string) bool {
	h := strings.TrimSpace(hospitalCity)
	u := strings.TrimSpace(userCity)
	return h != "" && u != "" && strings.EqualFold(h, u)
}
