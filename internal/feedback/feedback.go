// Package feedback generates natural-language hints and feedback with a
// language model, degrading to fixed text whenever no model is available.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/ds-tutor/internal/config"
	"github.com/rcliao/ds-tutor/internal/logger"
	"github.com/rcliao/ds-tutor/internal/model"
)

// Generator writes learner-facing text. Implementations never fail: any
// provider problem yields the fallback text instead.
type Generator interface {
	Hint(ctx context.Context, ex *model.Exercise, code string, level int) string
	Feedback(ctx context.Context, ex *model.Exercise, code string, correct bool, errMsg string) string
	Explain(ctx context.Context, concept, background string) string
	SuggestNextSteps(ctx context.Context, completed []string, level string) string
}

var fallbackHints = map[int]string{
	1: "Think about the problem step by step. What's the first thing you need to do?",
	2: "Look at the example code above. Can you apply a similar approach?",
	3: "Check the documentation for the relevant function. The solution structure is similar to the examples.",
}

// FallbackHint is the fixed hint for a level.
func FallbackHint(level int) string {
	if h, ok := fallbackHints[level]; ok {
		return h
	}
	return fallbackHints[1]
}

// FallbackFeedback is the fixed verdict commentary.
func FallbackFeedback(correct bool, errMsg string) string {
	if correct {
		return "Correct! Great job solving this exercise. Keep up the good work!"
	}
	return fmt.Sprintf("Not quite right. %s Take another look and try again!", errMsg)
}

// FallbackExplanation is returned when no concept explanation can be generated.
func FallbackExplanation(concept string) string {
	return fmt.Sprintf("Explanation for %s is not available without a language model.", concept)
}

// FallbackSuggestion is the fixed study recommendation.
const FallbackSuggestion = "Continue with the next lesson in the curriculum!"

// LLMGenerator prompts a Completer.
type LLMGenerator struct {
	completer Completer
	log       *logger.Logger
}

// NewLLMGenerator wraps a completer. A nil logger discards output.
func NewLLMGenerator(c Completer, log *logger.Logger) *LLMGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &LLMGenerator{completer: c, log: log.With("provider", c.Name())}
}

// NewFromConfig returns a generator for the configured provider, or nil
// when feedback generation is disabled.
func NewFromConfig(cfg config.Config, log *logger.Logger) Generator {
	c := NewCompleter(cfg)
	if c == nil {
		return nil
	}
	return NewLLMGenerator(c, log)
}

func (g *LLMGenerator) complete(ctx context.Context, op, prompt string, maxTokens int) (string, bool) {
	text, err := g.completer.Complete(ctx, prompt, maxTokens)
	if err != nil {
		g.log.Warn("feedback provider failed, using fallback", "op", op, "error", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func (g *LLMGenerator) Hint(ctx context.Context, ex *model.Exercise, code string, level int) string {
	if text, ok := g.complete(ctx, "hint", hintPrompt(ex, code, level), 300); ok {
		return text
	}
	return FallbackHint(level)
}

func (g *LLMGenerator) Feedback(ctx context.Context, ex *model.Exercise, code string, correct bool, errMsg string) string {
	if text, ok := g.complete(ctx, "feedback", feedbackPrompt(ex, code, correct, errMsg), 400); ok {
		return text
	}
	return FallbackFeedback(correct, errMsg)
}

func (g *LLMGenerator) Explain(ctx context.Context, concept, background string) string {
	if text, ok := g.complete(ctx, "explain", explainPrompt(concept, background), 600); ok {
		return text
	}
	return FallbackExplanation(concept)
}

func (g *LLMGenerator) SuggestNextSteps(ctx context.Context, completed []string, level string) string {
	if text, ok := g.complete(ctx, "suggest", suggestPrompt(completed, level), 300); ok {
		return text
	}
	return FallbackSuggestion
}

func hintPrompt(ex *model.Exercise, code string, level int) string {
	if strings.TrimSpace(code) == "" {
		code = "(No code written yet)"
	}
	return fmt.Sprintf(`You are a Data Science tutor helping a student with an exercise.

Exercise: %s

The student needs a hint at level %d/3:
- Level 1: Gentle nudge, ask guiding questions, point them in the right direction
- Level 2: More specific guidance, mention relevant functions/methods without giving away the answer
- Level 3: Very specific guidance, show the structure without complete code

Student's current code:
%s

Provide an encouraging hint at level %d. Keep it concise (2-3 sentences).
Do NOT give the complete solution.`, ex.Instruction, level, fence(code), level)
}

func feedbackPrompt(ex *model.Exercise, code string, correct bool, errMsg string) string {
	if correct {
		return fmt.Sprintf(`The student solved this Data Science exercise correctly:

Exercise: %s

Student's solution:
%s

Provide encouraging feedback (2-3 sentences) that congratulates them, mentions what they did well, and suggests one related concept or optimization if applicable.`, ex.Instruction, fence(code))
	}
	return fmt.Sprintf(`The student's solution to this Data Science exercise has an issue:

Exercise: %s

Student's code:
%s

Error/Issue: %s

Provide constructive feedback (2-3 sentences) that explains what went wrong in simple terms and guides them toward the solution without giving it away.`, ex.Instruction, fence(code), errMsg)
}

func explainPrompt(concept, background string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explain the Data Science concept: %s\n\n", concept)
	if background != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", background)
	}
	b.WriteString("Give a beginner-friendly explanation: what it is, when to use it, a practical example, and one common pitfall. Keep it to 4-5 sentences.")
	return b.String()
}

func suggestPrompt(completed []string, level string) string {
	done := "(none yet)"
	if len(completed) > 0 {
		done = strings.Join(completed, ", ")
	}
	return fmt.Sprintf(`A Data Science student has completed these lessons:
%s

Their current level: %s

Based on their progress, suggest:
1. What they should focus on next (1-2 topics)
2. Why these topics are important
3. One encouraging remark about their progress

Keep it concise and motivating (3-4 sentences).`, done, level)
}

func fence(code string) string {
	return "```python\n" + strings.TrimRight(code, "\n") + "\n```"
}
