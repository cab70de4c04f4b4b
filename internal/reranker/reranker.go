// Package reranker provides pairwise relevance scoring for retrieval results.
//
// Reranking evaluates the request's need text and each candidate's profile
// text together, cross-encoder style, rather than relying on independent
// embedding similarity alone.
//
// # Trade-offs
//
// Reranking is a per-request option (SuggestRequest.Rerank, default on).
//
//   - Latency: adds an LLM call per request to score the candidate pool
//   - Quality: noticeably better ordering when retrieval scores are close
//   - Cost: extra model tokens proportional to the candidate pool size
//
// Disable it for high-throughput or latency-sensitive callers; the pipeline
// still runs deterministically with zero relevance scores.
package reranker

import (
	"context"
	"errors"
)

// ErrUnparseable is returned when the scorer produced output that could not
// be interpreted as scores. Callers fall back to retrieval-order scores;
// transport failures are returned as ordinary errors and are fatal for the
// request.
var ErrUnparseable = errors.New("reranker output unparseable")

// Pair is one need/profile comparison. The need text is rendered per
// candidate because it includes the candidate's own city.
type Pair struct {
	Need    string
	Profile string
}

// Reranker scores need/profile text pairs. The returned slice has one score
// per pair, in input order. Scores are roughly 0..1 but callers must not
// assume strict normalization.
type Reranker interface {
	Score(ctx context.Context, pairs []Pair) ([]float64, error)
}
