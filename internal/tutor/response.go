package tutor

import (
	"errors"

	"github.com/rcliao/ds-tutor/internal/model"
)

// Response is the uniform result of every engine operation. Only the
// fields relevant to the operation are set.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`

	Lesson      *LessonView          `json:"lesson,omitempty"`
	Correct     *bool                `json:"is_correct,omitempty"`
	Feedback    string               `json:"feedback,omitempty"`
	Hint        string               `json:"hint,omitempty"`
	Solution    string               `json:"solution,omitempty"`
	HintsUsed   *model.HintState     `json:"hints_used,omitempty"`
	Stats       *model.Stats         `json:"stats,omitempty"`
	Progress    *model.TopicProgress `json:"progress,omitempty"`
	Recent      []model.Activity     `json:"recent,omitempty"`
	Topics      []model.Topic        `json:"topics,omitempty"`
	Config      map[string]any       `json:"config,omitempty"`
	Explanation string               `json:"explanation,omitempty"`
	Suggestion  string               `json:"suggestion,omitempty"`

	Err error `json:"-"`
}

func ok(msg string) Response {
	return Response{Success: true, Message: msg}
}

func failure(err error) Response {
	r := Response{Message: err.Error(), Err: err}
	var f *Fault
	if errors.As(err, &f) && f.Kind != nil {
		r.Error = f.Kind.Error()
	}
	return r
}

// LessonView is the learner-facing projection of a lesson. The reference
// solution is left out.
type LessonView struct {
	ID       string         `json:"id"`
	Topic    string         `json:"topic"`
	Subtopic string         `json:"subtopic,omitempty"`
	Level    string         `json:"level,omitempty"`
	Position int            `json:"position"`
	Total    int            `json:"total"`
	Metadata model.Metadata `json:"metadata"`
	Content  model.Content  `json:"content"`
	Exercise *ExerciseView  `json:"exercise,omitempty"`
}

// ExerciseView is an exercise without its solution or hint texts.
type ExerciseView struct {
	ID          string `json:"id"`
	Instruction string `json:"instruction"`
	StarterCode string `json:"starter_code"`
	HintLevels  []int  `json:"hint_levels,omitempty"`
}

func newLessonView(l *model.Lesson, siblings []*model.Lesson) *LessonView {
	v := &LessonView{
		ID:       l.ID,
		Topic:    l.Topic,
		Subtopic: l.Subtopic,
		Level:    l.Level,
		Total:    len(siblings),
		Metadata: l.Metadata,
		Content:  l.Content,
	}
	for i, s := range siblings {
		if s.ID == l.ID {
			v.Position = i + 1
			break
		}
	}
	if ex := l.Exercise; ex != nil {
		ev := &ExerciseView{ID: ex.ID, Instruction: ex.Instruction, StarterCode: ex.StarterCode}
		for _, h := range ex.Hints {
			ev.HintLevels = append(ev.HintLevels, h.Level)
		}
		v.Exercise = ev
	}
	return v
}
