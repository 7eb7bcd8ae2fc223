package analyze

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatCompletionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":    "chatcmpl-test",
		"model": "gpt-4o-mini",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 17, "total_tokens": 59},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

func TestOpenAIAnalyzeText(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletionBody(t, validAnalysisJSON))
	}))
	defer server.Close()

	analyzer := NewOpenAIAnalyzer(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
	})

	result, err := analyzer.Analyze(context.Background(), &Request{Text: "学校に行きます"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(result.Sentences) != 1 || result.Sentences[0].Original != "学校に行きます" {
		t.Fatalf("sentences = %+v", result.Sentences)
	}
	if result.PromptTokens != 42 || result.CompletionTokens != 17 {
		t.Errorf("tokens = %d/%d", result.PromptTokens, result.CompletionTokens)
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts)
	}

	if got, _ := payload["model"].(string); got != "gpt-4o-mini" {
		t.Errorf("model = %q", got)
	}
	if _, ok := payload["response_format"]; !ok {
		t.Error("request missing response_format")
	}
	messages, _ := payload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want system + user", len(messages))
	}
}

func TestOpenAIAnalyzeImage(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatCompletionBody(t, validAnalysisJSON))
	}))
	defer server.Close()

	analyzer := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := analyzer.Analyze(context.Background(), &Request{
		Image:     []byte("fake-png-bytes"),
		ImageMIME: "image/png",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// The user message should carry an image_url content part.
	if !strings.Contains(mustMarshal(t, payload), "data:image/png;base64,") {
		t.Error("request missing base64 image data URL")
	}
}

func TestOpenAIAnalyzeRetriesUnparseableOutput(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			_, _ = w.Write(chatCompletionBody(t, "Sorry, I cannot help with that."))
			return
		}
		_, _ = w.Write(chatCompletionBody(t, validAnalysisJSON))
	}))
	defer server.Close()

	analyzer := NewOpenAIAnalyzer(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	result, err := analyzer.Analyze(context.Background(), &Request{Text: "猫"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", result.Attempts)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestOpenAIAnalyzeGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	analyzer := NewOpenAIAnalyzer(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})

	if _, err := analyzer.Analyze(context.Background(), &Request{Text: "猫"}); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestOpenAIAnalyzeRejectsEmptyRequest(t *testing.T) {
	analyzer := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key"})
	if _, err := analyzer.Analyze(context.Background(), &Request{}); err == nil {
		t.Fatal("expected error for empty request")
	}
}

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
