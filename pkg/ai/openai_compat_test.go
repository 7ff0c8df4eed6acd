package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"joeunedu/pkg/domain"
)

func TestCompleteMessageArrayShape(t *testing.T) {
	var captured oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	defer srv.Close()

	completer := NewOpenAICompatCompleter(Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		Model:        "test-model",
		SystemPrompt: "You are the consultancy assistant.",
	})
	history := []domain.ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	reply, err := completer.Complete(context.Background(), history, "new question?")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("reply = %q, want %q", reply, "hi there")
	}

	if len(captured.Messages) != 4 {
		t.Fatalf("message count = %d, want 4", len(captured.Messages))
	}
	first := captured.Messages[0]
	if first.Role != "system" || first.Content != "You are the consultancy assistant." {
		t.Fatalf("first message must be the fixed system prompt, got %+v", first)
	}
	last := captured.Messages[len(captured.Messages)-1]
	if last.Role != "user" || last.Content != "new question?" {
		t.Fatalf("last message must equal the new user message verbatim, got %+v", last)
	}
	if captured.Temperature != 0.7 {
		t.Fatalf("temperature = %v, want 0.7", captured.Temperature)
	}
	if captured.MaxTokens != 1000 {
		t.Fatalf("max_tokens = %d, want 1000", captured.MaxTokens)
	}
}

func TestCompleteMissingAPIKeyFailsBeforeAnyCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	completer := NewOpenAICompatCompleter(Config{BaseURL: srv.URL, Model: "m"})
	_, err := completer.Complete(context.Background(), nil, "hello")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if called {
		t.Fatalf("provider must not be called without a credential")
	}
}

func TestCompleteProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited upstream"},
		})
	}))
	defer srv.Close()

	completer := NewOpenAICompatCompleter(Config{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := completer.Complete(context.Background(), nil, "hello")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", provErr.StatusCode)
	}
	if provErr.Message != "rate limited upstream" {
		t.Fatalf("message = %q, want parsed envelope message", provErr.Message)
	}
}

func TestCompleteMalformedSuccessPayload(t *testing.T) {
	cases := map[string]string{
		"unparsable body": "{not json",
		"no choices":      `{"choices":[]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			completer := NewOpenAICompatCompleter(Config{BaseURL: srv.URL, APIKey: "k", Model: "m"})
			_, err := completer.Complete(context.Background(), nil, "hello")
			var respErr *ResponseError
			if !errors.As(err, &respErr) {
				t.Fatalf("expected ResponseError, got %v", err)
			}
		})
	}
}
