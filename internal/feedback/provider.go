package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rcliao/ds-tutor/internal/config"
)

// Completer turns a single-turn prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	Name() string
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- Anthropic Provider ---

// AnthropicCompleter uses the Anthropic Messages API.
type AnthropicCompleter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewAnthropicCompleter creates a completer for the Messages API.
func NewAnthropicCompleter(baseURL, apiKey, model string) *AnthropicCompleter {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicCompleter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var out anthropicResponse
	err := postJSON(ctx, c.client, c.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}, anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	var b strings.Builder
	for _, part := range out.Content {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return b.String(), nil
}

func (c *AnthropicCompleter) Name() string { return "anthropic" }

// --- OpenAI-compatible Provider ---

// OpenAICompleter uses any OpenAI-compatible chat completions API.
type OpenAICompleter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type openaiChatRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// NewOpenAICompleter creates a completer for an OpenAI-compatible API.
func NewOpenAICompleter(baseURL, apiKey, model string) *OpenAICompleter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAICompleter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}
	var out openaiChatResponse
	err := postJSON(ctx, c.client, c.baseURL+"/chat/completions", headers, openaiChatRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: no completion returned")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) Name() string { return "openai" }

// --- Ollama Provider ---

// OllamaCompleter uses a local Ollama instance.
type OllamaCompleter struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]int `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaCompleter creates a completer using Ollama's generate API.
func NewOllamaCompleter(baseURL, model string) *OllamaCompleter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaCompleter{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *OllamaCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var out ollamaResponse
	err := postJSON(ctx, c.client, c.baseURL+"/api/generate", nil, ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		Options: map[string]int{"num_predict": maxTokens},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("ollama: empty response")
	}
	return out.Response, nil
}

func (c *OllamaCompleter) Name() string { return "ollama" }

// --- Factory ---

// NewCompleter picks a provider from configuration.
// DSTUTOR_FEEDBACK_PROVIDER: "anthropic" | "openai" | "ollama" | "" (auto)
// With no provider named, an ANTHROPIC_API_KEY selects anthropic.
// Returns nil when feedback generation is disabled.
func NewCompleter(cfg config.Config) Completer {
	switch cfg.FeedbackProvider {
	case "anthropic":
		return NewAnthropicCompleter(cfg.FeedbackURL, cfg.AnthropicKey, cfg.FeedbackModel)
	case "openai":
		return NewOpenAICompleter(cfg.FeedbackURL, cfg.OpenAIKey, cfg.FeedbackModel)
	case "ollama":
		return NewOllamaCompleter(cfg.FeedbackURL, cfg.FeedbackModel)
	case "":
		if cfg.AnthropicKey != "" {
			return NewAnthropicCompleter(cfg.FeedbackURL, cfg.AnthropicKey, cfg.FeedbackModel)
		}
	}
	return nil
}
