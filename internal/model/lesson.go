// Package model defines the core tutor data types.
package model

// Lesson is one step of a topic's curriculum. It carries at most one exercise.
type Lesson struct {
	ID       string   `json:"id" yaml:"id"`
	Topic    string   `json:"topic" yaml:"topic"`
	Subtopic string   `json:"subtopic,omitempty" yaml:"subtopic"`
	Level    string   `json:"level,omitempty" yaml:"level"`
	Order    int      `json:"order" yaml:"order"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	Content  Content  `json:"content" yaml:"content"`

	Exercise *Exercise `json:"exercise,omitempty" yaml:"exercise"`
}

// Metadata holds display-only lesson attributes.
type Metadata struct {
	Duration   string `json:"duration,omitempty" yaml:"duration"`
	Difficulty string `json:"difficulty,omitempty" yaml:"difficulty"`
}

// Content is the teaching material shown before the exercise.
type Content struct {
	Introduction string    `json:"introduction,omitempty" yaml:"introduction"`
	Concept      string    `json:"concept,omitempty" yaml:"concept"`
	Examples     []Example `json:"examples,omitempty" yaml:"examples"`
}

// Example is a worked code sample with its expected output.
type Example struct {
	Title  string `json:"title" yaml:"title"`
	Code   string `json:"code" yaml:"code"`
	Output string `json:"output,omitempty" yaml:"output"`
}

// Exercise is one gradable unit. It is read-only once loaded.
type Exercise struct {
	ID          string         `json:"id" yaml:"id"`
	Instruction string         `json:"instruction" yaml:"instruction"`
	SetupCode   string         `json:"setup_code,omitempty" yaml:"setup_code"`
	StarterCode string         `json:"starter_code" yaml:"starter_code"`
	Solution    string         `json:"solution" yaml:"solution"`
	Hints       []Hint         `json:"hints,omitempty" yaml:"hints"`
	Validation  ValidationSpec `json:"validation" yaml:"validation"`
}

// Hint is a predefined hint at a given specificity level.
type Hint struct {
	Level int    `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
	Code  string `json:"code,omitempty" yaml:"code"`
}

// HintText returns the predefined hint for level, if one is declared.
func (e *Exercise) HintText(level int) (string, bool) {
	for _, h := range e.Hints {
		if h.Level != level {
			continue
		}
		if h.Text != "" {
			return h.Text, true
		}
		if h.Code != "" {
			return h.Code, true
		}
	}
	return "", false
}

// Topic describes a curriculum topic.
type Topic struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Level       string `json:"level" yaml:"level"`
	Status      string `json:"status" yaml:"status"`
}

// ValidTopicStatuses are the allowed topic statuses.
var ValidTopicStatuses = map[string]bool{
	"available": true,
	"locked":    true,
}
