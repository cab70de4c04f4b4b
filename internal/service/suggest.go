// Package service implements the suggestion pipeline: query build, semantic
// retrieval, hard filtering, city-first prioritization, pairwise rerank and
// composite scoring.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bloodroute/matchd/internal/cache"
	"github.com/bloodroute/matchd/internal/index"
	"github.com/bloodroute/matchd/internal/metrics"
	"github.com/bloodroute/matchd/internal/reranker"
)

// Sentinel errors the transport layer maps to response statuses.
var (
	// ErrInvalidRequest covers malformed or out-of-range request fields.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoLocality means none of user_city, (user_lat & user_lon) or
	// district was supplied, so there is nothing to personalize on.
	ErrNoLocality = errors.New("provide user_city or (user_lat & user_lon) or district")

	// ErrNoMatches means the hard filters eliminated every candidate.
	ErrNoMatches = errors.New("no matching hospitals after filters")

	// ErrUpstream wraps collaborator failures (embedder, index, scorer).
	ErrUpstream = errors.New("upstream failure")
)

// Request bounds and defaults.
const (
	defaultTopN       = 10
	maxTopN           = 50
	defaultMinResults = 5
)

// SuggestRequest is one matching request.
type SuggestRequest struct {
	BloodGroup              string   `json:"blood_group"`
	Component               string   `json:"component"`
	UnitsNeeded             int      `json:"units_needed"`
	Urgency                 string   `json:"urgency"`
	UserCity                string   `json:"user_city,omitempty"`
	UserLat                 *float64 `json:"user_lat,omitempty"`
	UserLon                 *float64 `json:"user_lon,omitempty"`
	WithinKM                *float64 `json:"within_km,omitempty"`
	District                string   `json:"district,omitempty"`
	Require24x7             bool     `json:"require_24x7"`
	RequireEmergencyService bool     `json:"require_emergency_service"`
	TopN                    int      `json:"top_n"`
	Rerank                  *bool    `json:"rerank,omitempty"`

	// Advisory fields: accepted but no radius widening loop is implemented.
	ExpandRadiusIfFew *bool `json:"expand_radius_if_few,omitempty"`
	MinResults        int   `json:"min_results,omitempty"`
}

// rerankEnabled reports the rerank toggle with its default of true.
func (r *SuggestRequest) rerankEnabled() bool {
	return r.Rerank == nil || *r.Rerank
}

// Suggestion is one ranked hospital in the response.
type Suggestion struct {
	HospitalID   string   `json:"hospital_id"`
	HospitalName string   `json:"hospital_name"`
	District     string   `json:"district,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	DistanceKM   *float64 `json:"distance_km"`
	Score        float64  `json:"score"`
	Reasons      []string `json:"reasons"`
}

// SuggestResponse is the ranked result list.
type SuggestResponse struct {
	TookMS    int64        `json:"took_ms"`
	QueryUsed string       `json:"query_used"`
	Results   []Suggestion `json:"results"`
}

// Retriever is the index query surface the pipeline consumes.
type Retriever interface {
	Query(ctx context.Context, queryText string, k int) ([]index.Hit, error)
}

// Options tunes the pipeline.
type Options struct {
	TopKRetrieve          int
	TopNDefault           int
	CityPriorityWeight    float64
	DistancePenaltyWeight float64
}

// SuggestService runs the matching pipeline against a published index.
type SuggestService struct {
	retriever Retriever
	rerank    reranker.Reranker
	cache     *cache.Store[SuggestResponse]
	metrics   *metrics.Metrics
	opts      Options
}

// NewSuggestService creates the pipeline. cache and m may be nil.
func NewSuggestService(retriever Retriever, rr reranker.Reranker, c *cache.Store[SuggestResponse], m *metrics.Metrics, opts Options) *SuggestService {
	if opts.TopKRetrieve <= 0 {
		opts.TopKRetrieve = 200
	}
	if opts.TopNDefault <= 0 {
		opts.TopNDefault = defaultTopN
	}
	return &SuggestService{
		retriever: retriever,
		rerank:    rr,
		cache:     c,
		metrics:   m,
		opts:      opts,
	}
}

// Suggest validates the request and runs the full pipeline. Validation
// failures never touch the index.
func (s *SuggestService) Suggest(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error) {
	start := time.Now()

	resp, err := s.suggest(ctx, req, start)
	s.observe(start, err)
	return resp, err
}

func (s *SuggestService) suggest(ctx context.Context, req *SuggestRequest, start time.Time) (*SuggestResponse, error) {
	if req.TopN == 0 {
		req.TopN = s.opts.TopNDefault
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	queryText := BuildQueryText(req)
	key := cacheKey(req, queryText)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			cached.TookMS = time.Since(start).Milliseconds()
			return &cached, nil
		}
	}

	hits, err := s.retriever.Query(ctx, queryText, s.opts.TopKRetrieve)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	candidates := filterCandidates(hits, req)
	if len(candidates) == 0 {
		return nil, ErrNoMatches
	}

	candidates = prioritizeCity(candidates, req.UserCity)

	if err := s.applyRelevance(ctx, candidates, req); err != nil {
		return nil, err
	}

	weights := blendWeights{
		CityPriority:    s.opts.CityPriorityWeight,
		DistancePenalty: s.opts.DistancePenaltyWeight,
	}
	for i := range candidates {
		candidates[i].composite = compositeScore(&candidates[i], req, weights)
		candidates[i].reasons = buildReasons(&candidates[i])
	}

	// Ties keep their pre-rank order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].composite > candidates[j].composite
	})
	if len(candidates) > req.TopN {
		candidates = candidates[:req.TopN]
	}

	results := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		sug := Suggestion{
			HospitalID:   c.rec.ID,
			HospitalName: c.rec.Name,
			District:     c.rec.District,
			City:         c.rec.City,
			State:        c.rec.State,
			Score:        round4(c.composite),
			Reasons:      c.reasons,
		}
		if c.distance.Valid {
			d := round2(c.distance.Value)
			sug.DistanceKM = &d
		}
		results[i] = sug
	}

	resp := &SuggestResponse{
		TookMS:    time.Since(start).Milliseconds(),
		QueryUsed: queryText,
		Results:   results,
	}

	if s.cache != nil {
		s.cache.Set(key, *resp)
	}
	return resp, nil
}

// applyRelevance fills each candidate's relevance score. When reranking is
// disabled every score is zero. An unparseable scorer response degrades to
// the retrieval scores; transport failures are fatal for the request.
func (s *SuggestService) applyRelevance(ctx context.Context, candidates []candidate, req *SuggestRequest) error {
	if !req.rerankEnabled() || s.rerank == nil {
		return nil
	}

	pairs := make([]reranker.Pair, len(candidates))
	for i := range candidates {
		pairs[i] = reranker.Pair{
			Need:    buildNeedText(req, candidates[i].rec.City),
			Profile: "Hospital profile: " + candidates[i].rec.ProfileText(),
		}
	}

	scores, err := s.rerank.Score(ctx, pairs)
	if err != nil {
		if errors.Is(err, reranker.ErrUnparseable) {
			slog.Warn("reranker output unparseable, falling back to retrieval scores", "error", err)
			for i := range candidates {
				candidates[i].relevance = float64(candidates[i].retrieval)
			}
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	for i := range candidates {
		candidates[i].relevance = scores[i]
	}
	return nil
}

// validate normalizes defaults in place and rejects malformed requests.
// The locality anchor check runs before any index access.
func validate(req *SuggestRequest) error {
	if strings.TrimSpace(req.BloodGroup) == "" {
		return fmt.Errorf("%w: blood_group is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Component) == "" {
		return fmt.Errorf("%w: component is required", ErrInvalidRequest)
	}
	if req.UnitsNeeded < 1 {
		return fmt.Errorf("%w: units_needed must be at least 1", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Urgency) == "" {
		return fmt.Errorf("%w: urgency is required", ErrInvalidRequest)
	}
	if (req.UserLat == nil) != (req.UserLon == nil) {
		return fmt.Errorf("%w: user_lat and user_lon must be supplied together", ErrInvalidRequest)
	}
	if req.WithinKM != nil && *req.WithinKM <= 0 {
		return fmt.Errorf("%w: within_km must be positive", ErrInvalidRequest)
	}

	if req.TopN == 0 {
		req.TopN = defaultTopN
	}
	if req.TopN < 1 || req.TopN > maxTopN {
		return fmt.Errorf("%w: top_n must be between 1 and %d", ErrInvalidRequest, maxTopN)
	}
	if req.MinResults == 0 {
		req.MinResults = defaultMinResults
	}

	hasCoords := req.UserLat != nil && req.UserLon != nil
	if strings.TrimSpace(req.UserCity) == "" && !hasCoords && strings.TrimSpace(req.District) == "" {
		return ErrNoLocality
	}
	return nil
}

// cacheKey renders every field that influences the ranked output. The query
// text covers most of them; coordinates and result shaping are appended
// because they change filtering and truncation without changing the query.
func cacheKey(req *SuggestRequest, queryText string) string {
	var sb strings.Builder
	sb.WriteString(queryText)
	sb.WriteString("|top_n=")
	sb.WriteString(strconv.Itoa(req.TopN))
	sb.WriteString("|rerank=")
	sb.WriteString(strconv.FormatBool(req.rerankEnabled()))
	if req.UserLat != nil && req.UserLon != nil {
		sb.WriteString("|lat=")
		sb.WriteString(strconv.FormatFloat(*req.UserLat, 'f', 6, 64))
		sb.WriteString("|lon=")
		sb.WriteString(strconv.FormatFloat(*req.UserLon, 'f', 6, 64))
	}
	if req.WithinKM != nil {
		sb.WriteString("|within=")
		sb.WriteString(strconv.FormatFloat(*req.WithinKM, 'f', 3, 64))
	}
	return sb.String()
}

func (s *SuggestService) observe(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNoMatches):
		outcome = "no_matches"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrNoLocality):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	s.metrics.SuggestRequests.WithLabelValues(outcome).Inc()
	s.metrics.SuggestDuration.Observe(time.Since(start).Seconds())
}
