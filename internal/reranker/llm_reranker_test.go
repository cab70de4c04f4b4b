package reranker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bloodroute/matchd/internal/llm"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func pairsOf(profiles ...string) []Pair {
	pairs := make([]Pair, len(profiles))
	for i, p := range profiles {
		pairs[i] = Pair{Need: "User need: O+ RBC", Profile: p}
	}
	return pairs
}

func TestLLMReranker_Score(t *testing.T) {
	fake := &fakeLLM{response: `{"scores": [{"pair_index": 0, "score": 0.9}, {"pair_index": 1, "score": 0.2}]}`}
	r := NewLLMReranker(fake)

	scores, err := r.Score(context.Background(), pairsOf("profile a", "profile b"))
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0] != 0.9 || scores[1] != 0.2 {
		t.Errorf("unexpected scores: %v", scores)
	}

	if !strings.Contains(fake.prompt, "User need: O+ RBC") {
		t.Error("prompt should contain the need text")
	}
	if !strings.Contains(fake.prompt, "[Pair 1]") || !strings.Contains(fake.prompt, "profile b") {
		t.Error("prompt should enumerate pairs")
	}
}

func TestLLMReranker_MarkdownFences(t *testing.T) {
	fake := &fakeLLM{response: "```json\n{\"scores\": [{\"pair_index\": 0, \"score\": 0.7}]}\n```"}
	r := NewLLMReranker(fake)

	scores, err := r.Score(context.Background(), pairsOf("p"))
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 0.7 {
		t.Errorf("expected 0.7, got %v", scores[0])
	}
}

func TestLLMReranker_MissingEntriesDefaultNeutral(t *testing.T) {
	fake := &fakeLLM{response: `{"scores": [{"pair_index": 1, "score": 0.8}]}`}
	r := NewLLMReranker(fake)

	scores, err := r.Score(context.Background(), pairsOf("a", "b", "c"))
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 0.5 || scores[2] != 0.5 {
		t.Errorf("missing entries should default to 0.5, got %v", scores)
	}
	if scores[1] != 0.8 {
		t.Errorf("expected 0.8 for scored entry, got %v", scores[1])
	}
}

func TestLLMReranker_ClampsScores(t *testing.T) {
	fake := &fakeLLM{response: `{"scores": [{"pair_index": 0, "score": 1.7}, {"pair_index": 1, "score": -0.4}]}`}
	r := NewLLMReranker(fake)

	scores, err := r.Score(context.Background(), pairsOf("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 1.0 || scores[1] != 0.0 {
		t.Errorf("scores should be clamped to [0,1], got %v", scores)
	}
}

func TestLLMReranker_UnparseableOutput(t *testing.T) {
	fake := &fakeLLM{response: "I think the first hospital is best."}
	r := NewLLMReranker(fake)

	_, err := r.Score(context.Background(), pairsOf("a"))
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}
}

func TestLLMReranker_TransportErrorIsFatal(t *testing.T) {
	fake := &fakeLLM{err: errors.New("connection refused")}
	r := NewLLMReranker(fake)

	_, err := r.Score(context.Background(), pairsOf("a"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrUnparseable) {
		t.Error("transport errors must not be classified as unparseable")
	}
}

func TestLLMReranker_EmptyInput(t *testing.T) {
	r := NewLLMReranker(&fakeLLM{})

	scores, err := r.Score(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if scores != nil {
		t.Errorf("expected nil scores for empty input, got %v", scores)
	}
}
