package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type hintKind int

const (
	hintsUnrevealed hintKind = iota
	hintsLevel
	hintsSolution
)

// HintState records how much help the learner has had on the current
// exercise: nothing, hints up to some level, or the full solution.
// The zero value is Unrevealed.
type HintState struct {
	kind  hintKind
	level int
}

// Unrevealed is the state before any hint was requested.
func Unrevealed() HintState { return HintState{} }

// HintLevel is the state after hints up to level n were shown.
func HintLevel(n int) HintState {
	if n <= 0 {
		return Unrevealed()
	}
	return HintState{kind: hintsLevel, level: n}
}

// SolutionRevealed is the state after the reference solution was shown.
// It keeps the highest hint level reached before the reveal.
func SolutionRevealed(prev HintState) HintState {
	return HintState{kind: hintsSolution, level: prev.level}
}

// Level is the highest hint level shown.
func (h HintState) Level() int { return h.level }

// Revealed reports whether the solution was shown.
func (h HintState) Revealed() bool { return h.kind == hintsSolution }

// Escalate raises the state to at least level n. It never lowers the level
// and never leaves the SolutionRevealed state.
func (h HintState) Escalate(n int) HintState {
	if n <= h.level {
		return h
	}
	if h.kind == hintsSolution {
		return HintState{kind: hintsSolution, level: n}
	}
	return HintLevel(n)
}

func (h HintState) String() string {
	switch h.kind {
	case hintsLevel:
		return fmt.Sprintf("level(%d)", h.level)
	case hintsSolution:
		return "solution_revealed"
	default:
		return "unrevealed"
	}
}

type hintStateJSON struct {
	Level            int  `json:"level"`
	SolutionRevealed bool `json:"solution_revealed"`
}

func (h HintState) MarshalJSON() ([]byte, error) {
	return json.Marshal(hintStateJSON{Level: h.level, SolutionRevealed: h.Revealed()})
}

func (h *HintState) UnmarshalJSON(b []byte) error {
	var v hintStateJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*h = RestoreHintState(v.Level, v.SolutionRevealed)
	return nil
}

// RestoreHintState rebuilds a state from its persisted columns.
func RestoreHintState(level int, revealed bool) HintState {
	if revealed {
		return HintState{kind: hintsSolution, level: max(level, 0)}
	}
	return HintLevel(level)
}

// AttemptRecord is one submission-and-check event. Never mutated.
type AttemptRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ExerciseID  string    `json:"exercise_id"`
	Code        string    `json:"submitted_code"`
	Correct     bool      `json:"is_correct"`
	Hints       HintState `json:"hints_used"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Stats are aggregate progress figures derived from the attempt log.
type Stats struct {
	CompletedLessons   int     `json:"completed_lessons"`
	AttemptedExercises int     `json:"attempted_exercises"`
	CorrectExercises   int     `json:"correct_exercises"`
	SolvedUnaided      int     `json:"solved_unaided"`
	TotalAttempts      int     `json:"total_attempts"`
	Accuracy           float64 `json:"accuracy"`

	// CurrentStreak is the run of consecutive days with an attempt, ending
	// today or yesterday (UTC).
	CurrentStreak int        `json:"current_streak"`
	LastActive    *time.Time `json:"last_active,omitempty"`
}

// TopicProgress summarizes completion within one topic.
type TopicProgress struct {
	Topic       string  `json:"topic"`
	Completed   int     `json:"completed"`
	Total       int     `json:"total"`
	ProgressPct float64 `json:"progress_pct"`
}

// Activity is a compact attempt view for recent-activity listings.
type Activity struct {
	ExerciseID  string    `json:"exercise_id"`
	Correct     bool      `json:"is_correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Session is the persisted position of a learner in the curriculum.
type Session struct {
	UserID    string            `json:"user_id"`
	Topic     string            `json:"topic,omitempty"`
	LessonID  string            `json:"lesson_id,omitempty"`
	Hints     HintState         `json:"hints"`
	Settings  map[string]string `json:"settings,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}
