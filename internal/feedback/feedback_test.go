package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rcliao/ds-tutor/internal/config"
	"github.com/rcliao/ds-tutor/internal/model"
)

var exercise = &model.Exercise{ID: "numpy_01", Instruction: "Create an array of 10..50"}

func TestAnthropicCompleter(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"type":"text","text":"Try np.array."}]}`))
	}))
	defer srv.Close()

	g := NewLLMGenerator(NewAnthropicCompleter(srv.URL, "k", ""), nil)
	if hint := g.Hint(context.Background(), exercise, "", 2); hint != "Try np.array." {
		t.Errorf("hint = %q", hint)
	}
	if got.MaxTokens != 300 || len(got.Messages) != 1 || !strings.Contains(got.Messages[0].Content, "level 2/3") {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(got.Messages[0].Content, "(No code written yet)") {
		t.Error("empty code should be described in the prompt")
	}
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("request %s %v", r.URL.Path, r.Header)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  The shape is off.  "}}]}`))
	}))
	defer srv.Close()

	g := NewLLMGenerator(NewOpenAICompleter(srv.URL, "k", "m"), nil)
	if fb := g.Feedback(context.Background(), exercise, "result = 1", false, "Shape mismatch"); fb != "The shape is off." {
		t.Errorf("feedback = %q", fb)
	}
}

func TestOllamaCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.URL.Path != "/api/generate" || req.Stream || req.Options["num_predict"] != 600 {
			t.Errorf("request %s %+v", r.URL.Path, req)
		}
		w.Write([]byte(`{"response":"Broadcasting stretches arrays."}`))
	}))
	defer srv.Close()

	g := NewLLMGenerator(NewOllamaCompleter(srv.URL, ""), nil)
	if got := g.Explain(context.Background(), "broadcasting", ""); got != "Broadcasting stretches arrays." {
		t.Errorf("explain = %q", got)
	}
}

func TestSuggestNextSteps(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Messages[0].Content)
		w.Write([]byte(`{"content":[{"type":"text","text":"Move on to pandas."}]}`))
	}))
	defer srv.Close()

	g := NewLLMGenerator(NewAnthropicCompleter(srv.URL, "k", ""), nil)
	ctx := context.Background()
	if got := g.SuggestNextSteps(ctx, []string{"numpy_01", "numpy_02"}, "intermediate"); got != "Move on to pandas." {
		t.Errorf("suggestion = %q", got)
	}
	g.SuggestNextSteps(ctx, nil, "beginner")
	if len(prompts) != 2 {
		t.Fatalf("prompts = %d, want 2", len(prompts))
	}
	if !strings.Contains(prompts[0], "numpy_01, numpy_02") || !strings.Contains(prompts[0], "current level: intermediate") {
		t.Errorf("prompt = %q", prompts[0])
	}
	if !strings.Contains(prompts[1], "(none yet)") {
		t.Errorf("empty history prompt = %q", prompts[1])
	}
}

func TestProviderFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewLLMGenerator(NewAnthropicCompleter(srv.URL, "k", ""), nil)
	ctx := context.Background()
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"hint", g.Hint(ctx, exercise, "x = 1", 3), FallbackHint(3)},
		{"correct feedback", g.Feedback(ctx, exercise, "x", true, ""), FallbackFeedback(true, "")},
		{"incorrect feedback", g.Feedback(ctx, exercise, "x", false, "Value mismatch"), "Not quite right. Value mismatch Take another look and try again!"},
		{"explain", g.Explain(ctx, "groupby", ""), FallbackExplanation("groupby")},
		{"suggest", g.SuggestNextSteps(ctx, []string{"numpy_01"}, "beginner"), "Continue with the next lesson in the curriculum!"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestFallbackHint(t *testing.T) {
	if FallbackHint(7) != FallbackHint(1) {
		t.Error("unknown levels should use the level-1 hint")
	}
	if FallbackHint(2) == FallbackHint(1) {
		t.Error("levels 1 and 2 should differ")
	}
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"disabled", config.Config{}, ""},
		{"anthropic by key", config.Config{AnthropicKey: "k"}, "anthropic"},
		{"openai", config.Config{FeedbackProvider: "openai"}, "openai"},
		{"ollama", config.Config{FeedbackProvider: "ollama"}, "ollama"},
		{"off", config.Config{FeedbackProvider: "off", AnthropicKey: "k"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewFromConfig(tt.cfg, nil)
			if tt.want == "" {
				if g != nil {
					t.Errorf("expected no generator, got %T", g)
				}
				return
			}
			llm, ok := g.(*LLMGenerator)
			if !ok || llm.completer.Name() != tt.want {
				t.Errorf("generator = %#v, want provider %s", g, tt.want)
			}
		})
	}
}
