package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bloodroute/matchd/internal/llm"
)

// LLMReranker uses an LLM to score need/profile pairs for relevance.
// The model sees the request's needs and the hospital profile together,
// enabling more accurate relevance assessment than embedding distance.
type LLMReranker struct {
	llmClient llm.LLM
	model     string
}

// LLMRerankerOption is a functional option for configuring LLMReranker.
type LLMRerankerOption func(*LLMReranker)

// WithModel sets the model to use for reranking.
func WithModel(model string) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.model = model
	}
}

// NewLLMReranker creates a new LLM-based reranker.
func NewLLMReranker(llmClient llm.LLM, opts ...LLMRerankerOption) *LLMReranker {
	r := &LLMReranker{
		llmClient: llmClient,
		model:     "llama3.2", // Default model
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// pairScore represents the structured output from the LLM.
type pairScore struct {
	PairIndex int     `json:"pair_index"`
	Score     float64 `json:"score"`
}

type scoreResponse struct {
	Scores []pairScore `json:"scores"`
}

// Score asks the LLM to rate how well each hospital profile satisfies the
// stated need. Missing entries default to a neutral 0.5; a response that is
// not valid JSON yields ErrUnparseable.
func (r *LLMReranker) Score(ctx context.Context, pairs []Pair) ([]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	prompt := r.buildPrompt(pairs)

	opts := llm.GenerateOptions{
		Model:       r.model,
		Temperature: 0.0, // Deterministic scoring
		MaxTokens:   2048,
	}

	response, err := r.llmClient.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, fmt.Errorf("LLM reranking failed: %w", err)
	}

	scores, err := r.parseResponse(response, len(pairs))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	return scores, nil
}

// buildPrompt constructs the scoring prompt for all pairs in one call.
func (r *LLMReranker) buildPrompt(pairs []Pair) string {
	var sb strings.Builder

	sb.WriteString("You are a relevance scoring system for matching blood requests to hospitals.\n")
	sb.WriteString("Score how well each hospital profile satisfies the stated need.\n\n")

	sb.WriteString("Pairs to score:\n")
	for i, pair := range pairs {
		profile := pair.Profile
		// Truncate to stay well inside the model context
		if len(profile) > 500 {
			profile = profile[:500] + "..."
		}
		sb.WriteString(fmt.Sprintf("[Pair %d]\n%s\n%s\n\n", i, pair.Need, profile))
	}

	sb.WriteString(`Score each pair from 0.0 to 1.0 based on how well the hospital satisfies the need.
Output ONLY valid JSON in this exact format:
{"scores": [{"pair_index": 0, "score": 0.9}, {"pair_index": 1, "score": 0.3}, ...]}

Be strict: poor matches should score below 0.3, partial matches 0.3-0.7, strong matches above 0.7.
Output only JSON, no explanation:`)

	return sb.String()
}

// parseResponse extracts scores from the LLM response.
func (r *LLMReranker) parseResponse(response string, numPairs int) ([]float64, error) {
	response = strings.TrimSpace(response)

	// Strip markdown code fences if present
	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	} else if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	}

	response = strings.TrimSpace(response)

	var parsed scoreResponse
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse score response: %w", err)
	}

	scores := make([]float64, numPairs)
	for i := range scores {
		scores[i] = 0.5 // Neutral default for missing entries
	}

	for _, s := range parsed.Scores {
		if s.PairIndex >= 0 && s.PairIndex < numPairs {
			score := s.Score
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			scores[s.PairIndex] = score
		}
	}

	return scores, nil
}

// Ensure LLMReranker implements Reranker interface.
var _ Reranker = (*LLMReranker)(nil)
