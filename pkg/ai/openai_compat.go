package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"joeunedu/pkg/domain"
)

const (
	completionTemperature = 0.7
	completionMaxTokens   = 1000
)

// OpenAICompatCompleter calls any OpenAI-compatible /v1/chat/completions
// endpoint (OpenRouter, vLLM, LiteLLM, self-hosted models, etc.).
type OpenAICompatCompleter struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	siteURL      string
	siteName     string
	httpClient   *http.Client
}

// Config holds the provider settings for the completer.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	// SiteURL and SiteName populate the HTTP-Referer / X-Title attribution
	// headers some hosted providers use for ranking.
	SiteURL  string
	SiteName string
}

// NewOpenAICompatCompleter builds the completer. BaseURL should include the
// /v1 prefix, e.g. "https://openrouter.ai/api/v1".
func NewOpenAICompatCompleter(cfg Config) *OpenAICompatCompleter {
	return &OpenAICompatCompleter{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        strings.TrimSpace(cfg.Model),
		systemPrompt: cfg.SystemPrompt,
		siteURL:      strings.TrimSpace(cfg.SiteURL),
		siteName:     strings.TrimSpace(cfg.SiteName),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete forwards system prompt + history + new user message and relays
// the first choice's text. No retries, no backoff: every failure surfaces
// immediately to the caller turn.
func (g *OpenAICompatCompleter) Complete(ctx context.Context, history []domain.ChatMessage, userMessage string) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if g.model == "" {
		return "", fmt.Errorf("chat completion model required")
	}

	messages := make([]oaiMessage, 0, len(history)+2)
	if strings.TrimSpace(g.systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: domain.RoleSystem, Content: g.systemPrompt})
	}
	for _, msg := range history {
		role := strings.TrimSpace(msg.Role)
		if role != domain.RoleUser && role != domain.RoleAssistant {
			continue
		}
		messages = append(messages, oaiMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, oaiMessage{Role: domain.RoleUser, Content: userMessage})

	body, err := json.Marshal(oaiChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	})
	if err != nil {
		return "", err
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if g.siteURL != "" {
		req.Header.Set("HTTP-Referer", g.siteURL)
	}
	if g.siteName != "" {
		req.Header.Set("X-Title", g.siteName)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", &ProviderError{StatusCode: resp.StatusCode, Message: errResp.Error.Message}
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &ResponseError{Reason: "unparsable completion body"}
	}
	if len(chatResp.Choices) == 0 {
		return "", &ResponseError{Reason: "completion has no choices"}
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", &ResponseError{Reason: "completion choice is empty"}
	}
	return text, nil
}

// OpenAI-compatible request/response types.

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
