package analyze

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kotoba-app/kotoba/internal/history"
)

const MockName = "mock"

// Mock is an Analyzer for testing and offline development.
type Mock struct {
	// Configurable behavior.
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int // Fail after N requests (0 = never)
	Sentences  []history.Sentence

	requestCount atomic.Int64
}

// NewMock creates a mock analyzer that returns one canned sentence.
func NewMock() *Mock {
	return &Mock{
		Sentences: []history.Sentence{{
			Original:    "これはテストです",
			Romaji:      "kore wa tesuto desu",
			Translation: "This is a test",
			Structure:   "AはBです",
			Vocabulary: []history.VocabularyMention{
				{Word: "テスト", Romaji: "tesuto", Meaning: "test"},
			},
		}},
	}
}

// Name returns the analyzer identifier.
func (m *Mock) Name() string {
	return MockName
}

// Requests returns how many times Analyze has been called.
func (m *Mock) Requests() int {
	return int(m.requestCount.Load())
}

// Analyze returns the canned sentences, honoring the configured failure
// and latency behavior.
func (m *Mock) Analyze(ctx context.Context, req *Request) (*Result, error) {
	count := m.requestCount.Add(1)

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}

	if m.ShouldFail || (m.FailAfter > 0 && count > int64(m.FailAfter)) {
		return nil, fmt.Errorf("mock analyzer failure (request %d)", count)
	}
	if req.Text == "" && len(req.Image) == 0 {
		return nil, fmt.Errorf("analysis request needs text or an image")
	}

	sentences := make([]history.Sentence, len(m.Sentences))
	copy(sentences, m.Sentences)
	return &Result{
		Sentences: sentences,
		Model:     MockName,
		Attempts:  1,
	}, nil
}
