// Package tutor drives a learner through the curriculum: it tracks the
// active lesson and hint state, validates submissions and records every
// attempt in the progress ledger.
package tutor

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/rcliao/ds-tutor/internal/feedback"
	"github.com/rcliao/ds-tutor/internal/logger"
	"github.com/rcliao/ds-tutor/internal/model"
	"github.com/rcliao/ds-tutor/internal/store"
	"github.com/rcliao/ds-tutor/internal/validate"
)

// Phase is the engine's position in its lifecycle.
type Phase int

const (
	Uninitialized Phase = iota
	Idle
	InLesson
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case InLesson:
		return "in_lesson"
	}
	return "uninitialized"
}

// Catalog is the lesson source the engine navigates.
type Catalog interface {
	Topics() []model.Topic
	AllLessons(topic string) []*model.Lesson
	FirstLesson(topic string) (*model.Lesson, bool)
	Next(topic, lessonID string) (*model.Lesson, bool)
	Previous(topic, lessonID string) (*model.Lesson, bool)
	ByID(lessonID string) (*model.Lesson, bool)
}

var defaultSettings = map[string]string{
	"auto_validate":      "true",
	"hint_style":         "progressive",
	"feedback_verbosity": "normal",
	"difficulty":         "medium",
}

// levelRank orders lesson levels for picking a learner's level.
var levelRank = map[string]int{"beginner": 1, "intermediate": 2, "advanced": 3}

var settingChoices = map[string][]string{
	"hint_style":         {"progressive", "direct"},
	"feedback_verbosity": {"minimal", "normal", "detailed"},
	"difficulty":         {"easy", "medium", "hard"},
}

// Options configures an Engine. Feedback and Logger may be nil.
type Options struct {
	UserID    string
	Catalog   Catalog
	Ledger    store.Ledger
	Validator *validate.Validator
	Feedback  feedback.Generator
	Logger    *logger.Logger
}

// Engine is the session state machine for one learner. It is not safe for
// concurrent use.
type Engine struct {
	userID    string
	catalog   Catalog
	ledger    store.Ledger
	validator *validate.Validator
	feedback  feedback.Generator
	log       *logger.Logger

	phase    Phase
	topic    string
	lesson   *model.Lesson
	hints    model.HintState
	settings map[string]string
}

// New creates an engine in the Uninitialized phase.
func New(opts Options) *Engine {
	if opts.UserID == "" {
		opts.UserID = "default"
	}
	if opts.Validator == nil {
		opts.Validator = validate.New(nil, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Engine{
		userID:    opts.UserID,
		catalog:   opts.Catalog,
		ledger:    opts.Ledger,
		validator: opts.Validator,
		feedback:  opts.Feedback,
		log:       opts.Logger.With("user", opts.UserID),
		settings:  maps.Clone(defaultSettings),
	}
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase { return e.phase }

// Hints returns the hint state of the active exercise.
func (e *Engine) Hints() model.HintState { return e.hints }

// Lesson returns the active lesson, or nil.
func (e *Engine) Lesson() *model.Lesson { return e.lesson }

// Snapshot captures the session for persistence.
func (e *Engine) Snapshot() model.Session {
	s := model.Session{
		UserID:   e.userID,
		Topic:    e.topic,
		Hints:    e.hints,
		Settings: maps.Clone(e.settings),
	}
	if e.lesson != nil {
		s.LessonID = e.lesson.ID
	}
	return s
}

// Restore reinstates a saved session. A session whose lesson no longer
// exists leaves the engine Idle and returns a not-found fault.
func (e *Engine) Restore(s model.Session) error {
	for k, v := range s.Settings {
		if _, known := defaultSettings[k]; known {
			e.settings[k] = v
		}
	}
	e.phase = Idle
	e.topic = s.Topic
	e.lesson = nil
	e.hints = model.Unrevealed()
	if s.LessonID == "" {
		return nil
	}
	l, found := e.catalog.ByID(s.LessonID)
	if !found {
		return fault(ErrNotFound, "Lesson %q not found", s.LessonID)
	}
	e.enter(l)
	e.hints = s.Hints
	return nil
}

func (e *Engine) enter(l *model.Lesson) {
	if l.Topic != "" {
		e.topic = l.Topic
	}
	e.lesson = l
	e.hints = model.Unrevealed()
	e.phase = InLesson
	e.log.Debug("lesson entered", "topic", e.topic, "lesson", l.ID)
}

func (e *Engine) lessonResponse(msg string) Response {
	r := ok(msg)
	r.Lesson = newLessonView(e.lesson, e.catalog.AllLessons(e.topic))
	return r
}

func (e *Engine) activeLesson() (*model.Lesson, error) {
	if e.phase != InLesson || e.lesson == nil {
		return nil, fault(ErrNoActiveExercise, "No active lesson")
	}
	return e.lesson, nil
}

func (e *Engine) activeExercise() (*model.Exercise, error) {
	l, err := e.activeLesson()
	if err != nil {
		return nil, err
	}
	if l.Exercise == nil {
		return nil, fault(ErrNoActiveExercise, "Current lesson has no exercise")
	}
	return l.Exercise, nil
}

// Start enters the first lesson of topic.
func (e *Engine) Start(ctx context.Context, topic string) Response {
	topic = strings.TrimSpace(topic)
	l, found := e.catalog.FirstLesson(topic)
	if !found {
		return failure(fault(ErrNotFound, "Topic %q not found or has no lessons", topic))
	}
	e.topic = topic
	e.enter(l)
	return e.lessonResponse("Started topic: " + topic)
}

// Next marks the current lesson complete and advances to the next one.
// At the end of the topic the lesson is still marked complete but stays
// current.
func (e *Engine) Next(ctx context.Context) Response {
	l, err := e.activeLesson()
	if err != nil {
		return failure(err)
	}
	newly, err := e.ledger.MarkLessonComplete(ctx, e.userID, l.ID)
	if err != nil {
		e.log.Error("mark lesson complete", "lesson", l.ID, "error", err)
		return failure(ledgerFault("mark lesson complete", err))
	}
	if newly {
		e.log.Info("lesson completed", "lesson", l.ID)
	}
	next, found := e.catalog.Next(e.topic, l.ID)
	if !found {
		return failure(fault(ErrNotFound, "No more lessons in this topic. Great job! 🎉"))
	}
	e.enter(next)
	return e.lessonResponse("Loaded next lesson")
}

// Previous moves back one lesson.
func (e *Engine) Previous(ctx context.Context) Response {
	l, err := e.activeLesson()
	if err != nil {
		return failure(err)
	}
	prev, found := e.catalog.Previous(e.topic, l.ID)
	if !found {
		return failure(fault(ErrNotFound, "This is the first lesson"))
	}
	e.enter(prev)
	return e.lessonResponse("Loaded previous lesson")
}

// Goto jumps to any lesson by id.
func (e *Engine) Goto(ctx context.Context, lessonID string) Response {
	l, found := e.catalog.ByID(lessonID)
	if !found {
		return failure(fault(ErrNotFound, "Lesson %q not found", lessonID))
	}
	e.enter(l)
	return e.lessonResponse("Jumped to lesson: " + lessonID)
}

// Current describes the active lesson.
func (e *Engine) Current(ctx context.Context) Response {
	if _, err := e.activeLesson(); err != nil {
		return failure(err)
	}
	r := e.lessonResponse("Current lesson: " + e.lesson.ID)
	h := e.hints
	r.HintsUsed = &h
	return r
}

// Hint raises the hint level to at least level and returns the hint for
// that level: the predefined text if any, else generated text, else none.
func (e *Engine) Hint(ctx context.Context, level int, code string) Response {
	ex, err := e.activeExercise()
	if err != nil {
		return failure(err)
	}
	if level < 1 {
		return failure(fault(ErrInvalidInput, "Hint level must be at least 1, got %d", level))
	}
	e.hints = e.hints.Escalate(level)

	r := ok(fmt.Sprintf("Hint level %d", level))
	h := e.hints
	r.HintsUsed = &h
	if text, found := ex.HintText(level); found {
		r.Hint = text
		return r
	}
	if e.feedback != nil {
		r.Hint = e.feedback.Hint(ctx, ex, code, level)
		return r
	}
	r.Message = fmt.Sprintf("No hint available for level %d", level)
	return r
}

// Solution reveals the reference solution. Attempts recorded afterwards
// carry the revealed state.
func (e *Engine) Solution(ctx context.Context) Response {
	ex, err := e.activeExercise()
	if err != nil {
		return failure(err)
	}
	e.hints = model.SolutionRevealed(e.hints)
	e.log.Debug("solution revealed", "exercise", ex.ID)
	r := ok("Solution revealed")
	r.Solution = ex.Solution
	h := e.hints
	r.HintsUsed = &h
	return r
}

// Reset clears hint usage for the current exercise. Lesson position and
// ledger are untouched.
func (e *Engine) Reset(ctx context.Context) Response {
	e.hints = model.Unrevealed()
	return ok("Hints reset")
}

// ResetProgress deletes the ledger records of the current exercise and
// lesson, and clears hint usage.
func (e *Engine) ResetProgress(ctx context.Context) Response {
	l, err := e.activeLesson()
	if err != nil {
		return failure(err)
	}
	ids := []string{l.ID}
	if l.Exercise != nil && l.Exercise.ID != l.ID {
		ids = append(ids, l.Exercise.ID)
	}
	for _, id := range ids {
		if err := e.ledger.ResetLesson(ctx, e.userID, id); err != nil {
			e.log.Error("reset lesson", "id", id, "error", err)
			return failure(ledgerFault("reset lesson progress", err))
		}
	}
	e.hints = model.Unrevealed()
	return ok("Progress reset for lesson: " + l.ID)
}

// Check validates code against the active exercise and records the attempt.
// A validation spec fault records nothing.
func (e *Engine) Check(ctx context.Context, code string) Response {
	ex, err := e.activeExercise()
	if err != nil {
		return failure(err)
	}
	res := e.validator.ValidateExercise(ctx, ex, code)
	if res.Fault != nil {
		e.log.Warn("exercise has invalid validation spec", "exercise", ex.ID, "error", res.Fault)
		return failure(&Fault{Kind: ErrValidationConfig, Msg: res.Message, Err: res.Fault})
	}

	_, err = e.ledger.RecordAttempt(ctx, store.RecordParams{
		UserID:     e.userID,
		ExerciseID: ex.ID,
		LessonID:   e.lesson.ID,
		Code:       code,
		Correct:    res.Correct,
		Hints:      e.hints,
	})
	if err != nil {
		e.log.Error("record attempt", "exercise", ex.ID, "error", err)
		return failure(ledgerFault("record attempt", err))
	}
	e.log.Debug("attempt recorded", "exercise", ex.ID, "correct", res.Correct, "hints", e.hints.String())

	msg := res.Message
	if !res.Correct && e.feedback != nil {
		msg = e.feedback.Feedback(ctx, ex, code, false, res.Message)
	}
	r := ok(msg)
	correct := res.Correct
	r.Correct = &correct
	r.Feedback = res.Message
	return r
}

// Stats reports aggregate progress.
func (e *Engine) Stats(ctx context.Context) Response {
	st, err := e.ledger.Stats(ctx, e.userID)
	if err != nil {
		e.log.Error("read stats", "error", err)
		return failure(ledgerFault("read stats", err))
	}
	r := ok(fmt.Sprintf("%d lessons completed, %d of %d exercises correct",
		st.CompletedLessons, st.CorrectExercises, st.AttemptedExercises))
	r.Stats = st
	return r
}

// TopicProgress reports completion within topic, defaulting to the current
// topic. The total is the number of lessons the catalog holds for it.
func (e *Engine) TopicProgress(ctx context.Context, topic string) Response {
	if topic == "" {
		topic = e.topic
	}
	if topic == "" {
		return failure(fault(ErrInvalidInput, "No topic given and no active topic"))
	}
	lessons := e.catalog.AllLessons(topic)
	if len(lessons) == 0 && !e.knownTopic(topic) {
		return failure(fault(ErrNotFound, "Topic %q not found or has no lessons", topic))
	}
	ids := make([]string, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	tp, err := e.ledger.TopicProgress(ctx, e.userID, topic, ids)
	if err != nil {
		e.log.Error("read topic progress", "topic", topic, "error", err)
		return failure(ledgerFault("read topic progress", err))
	}
	r := ok(fmt.Sprintf("%s: %d/%d lessons completed", topic, tp.Completed, tp.Total))
	r.Progress = tp
	return r
}

func (e *Engine) knownTopic(id string) bool {
	return slices.ContainsFunc(e.catalog.Topics(), func(t model.Topic) bool { return t.ID == id })
}

// Recent lists the latest attempts, newest first.
func (e *Engine) Recent(ctx context.Context, limit int) Response {
	acts, err := e.ledger.RecentActivity(ctx, e.userID, limit)
	if err != nil {
		e.log.Error("read recent activity", "error", err)
		return failure(ledgerFault("read recent activity", err))
	}
	r := ok(fmt.Sprintf("%d recent attempts", len(acts)))
	r.Recent = acts
	return r
}

// Topics lists the curriculum topics.
func (e *Engine) Topics() Response {
	topics := e.catalog.Topics()
	r := ok(fmt.Sprintf("%d topics", len(topics)))
	r.Topics = topics
	return r
}

// Config returns the settings plus session facts.
func (e *Engine) Config() Response {
	cfg := make(map[string]any, len(e.settings)+4)
	for k, v := range e.settings {
		cfg[k] = v
	}
	if b, err := strconv.ParseBool(e.settings["auto_validate"]); err == nil {
		cfg["auto_validate"] = b
	}
	cfg["user_id"] = e.userID
	cfg["llm_enabled"] = e.feedback != nil
	cfg["current_topic"] = orNone(e.topic)
	lessonID := ""
	if e.lesson != nil {
		lessonID = e.lesson.ID
	}
	cfg["current_lesson"] = orNone(lessonID)
	r := ok("Configuration")
	r.Config = cfg
	return r
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// UpdateConfig changes one known setting.
func (e *Engine) UpdateConfig(key, value string) Response {
	key = strings.TrimSpace(key)
	if _, known := defaultSettings[key]; !known {
		return failure(fault(ErrInvalidInput, "Unknown config key: %s", key))
	}
	value = strings.TrimSpace(value)
	if key == "auto_validate" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return failure(fault(ErrInvalidInput, "auto_validate must be true or false, got %q", value))
		}
		value = strconv.FormatBool(b)
	}
	if choices, found := settingChoices[key]; found && !slices.Contains(choices, value) {
		return failure(fault(ErrInvalidInput, "%s must be one of %s, got %q", key, strings.Join(choices, ", "), value))
	}
	e.settings[key] = value
	r := e.Config()
	r.Message = fmt.Sprintf("Set %s = %s", key, value)
	return r
}

// Explain describes a concept, using the active exercise as background.
func (e *Engine) Explain(ctx context.Context, concept string) Response {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return failure(fault(ErrInvalidInput, "No concept given"))
	}
	background := ""
	if e.lesson != nil && e.lesson.Exercise != nil {
		background = e.lesson.Exercise.Instruction
	}
	r := ok("Explanation: " + concept)
	if e.feedback != nil {
		r.Explanation = e.feedback.Explain(ctx, concept, background)
	} else {
		r.Explanation = feedback.FallbackExplanation(concept)
	}
	return r
}

// Suggest recommends what to study next. The learner's level is the highest
// level among completed lessons, or the active lesson's when none are.
func (e *Engine) Suggest(ctx context.Context) Response {
	var completed []string
	level := ""
	for _, t := range e.catalog.Topics() {
		for _, l := range e.catalog.AllLessons(t.ID) {
			status, err := e.ledger.LessonStatus(ctx, e.userID, l.ID)
			if err != nil {
				return failure(ledgerFault("read lesson status", err))
			}
			if status != store.StatusCompleted {
				continue
			}
			completed = append(completed, l.ID)
			if levelRank[l.Level] > levelRank[level] {
				level = l.Level
			}
		}
	}
	if level == "" && e.lesson != nil {
		level = e.lesson.Level
	}
	if level == "" {
		level = "beginner"
	}

	r := ok(fmt.Sprintf("Suggested next steps (%d lessons completed, %s level)", len(completed), level))
	if e.feedback != nil {
		r.Suggestion = e.feedback.SuggestNextSteps(ctx, completed, level)
	} else {
		r.Suggestion = feedback.FallbackSuggestion
	}
	return r
}
