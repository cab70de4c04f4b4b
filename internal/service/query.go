package service

import (
	"fmt"
	"strings"
)

// BuildQueryText renders the request as the retrieval query. The clause order
// is fixed so identical requests always embed to the same vector, which is
// what makes response caching sound.
func BuildQueryText(req *SuggestRequest) string {
	parts := []string{
		fmt.Sprintf("Need %d units of %s", req.UnitsNeeded, req.BloodGroup),
		fmt.Sprintf("component %s", req.Component),
		fmt.Sprintf("urgency %s", req.Urgency),
	}
	if req.Require24x7 {
		parts = append(parts, "24x7 availability required")
	}
	if req.RequireEmergencyService {
		parts = append(parts, "emergency service required")
	}
	if req.UserCity != "" {
		parts = append(parts, fmt.Sprintf("prefer city %s", req.UserCity))
	}
	if req.District != "" {
		parts = append(parts, fmt.Sprintf("prefer district %s", req.District))
	}
	if req.UserLat != nil && req.UserLon != nil && req.WithinKM != nil && *req.WithinKM > 0 {
		parts = append(parts, fmt.Sprintf("within %g km", *req.WithinKM))
	}
	return strings.Join(parts, ", ")
}

// buildNeedText renders the request for one rerank pair. It includes the
// candidate's city so the scorer can judge locality fit per pair.
func buildNeedText(req *SuggestRequest, hospitalCity string) string {
	bits := []string{
		fmt.Sprintf("blood_group=%s", req.BloodGroup),
		fmt.Sprintf("component=%s", req.Component),
		fmt.Sprintf("units_needed=%d", req.UnitsNeeded),
		fmt.Sprintf("urgency=%s", req.Urgency),
	}
	if req.Require24x7 {
		bits = append(bits, "need_24x7=true")
	}
	if req.RequireEmergencyService {
		bits = append(bits, "need_emergency=true")
	}
	if req.UserCity != "" {
		bits = append(bits, fmt.Sprintf("user_city=%s", req.UserCity))
	}
	if hospitalCity != "" {
		bits = append(bits, fmt.Sprintf("hospital_city=%s", hospitalCity))
	}
	return "User need: " + strings.Join(bits, " | ")
}
