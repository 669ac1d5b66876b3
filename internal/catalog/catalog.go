// Package catalog loads the lesson curriculum from YAML files.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/ds-tutor/internal/model"
)

//go:embed lessons
var embedded embed.FS

// topicsFile lists topics in display order. Optional in a lessons directory.
const topicsFile = "topics.yaml"

// Catalog is an in-memory, read-only curriculum.
type Catalog struct {
	topics  []model.Topic
	lessons map[string][]*model.Lesson
	byID    map[string]*model.Lesson
}

type lessonFile struct {
	Lesson *model.Lesson `yaml:"lesson"`
}

type topicsDoc struct {
	Topics []model.Topic `yaml:"topics"`
}

// Load reads <dir>/<topic>/*.yaml. An empty dir loads the built-in sample
// curriculum.
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		sub, err := fs.Sub(embedded, "lessons")
		if err != nil {
			return nil, fmt.Errorf("open embedded lessons: %w", err)
		}
		return LoadFS(sub)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS reads a curriculum from fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{lessons: map[string][]*model.Lesson{}, byID: map[string]*model.Lesson{}}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read lessons dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := c.loadTopic(fsys, e.Name()); err != nil {
			return nil, err
		}
	}

	if err := c.loadTopics(fsys); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) loadTopic(fsys fs.FS, topic string) error {
	files, err := fs.Glob(fsys, path.Join(topic, "*.yaml"))
	if err != nil {
		return fmt.Errorf("list %s lessons: %w", topic, err)
	}
	sort.Strings(files)
	var lessons []*model.Lesson
	for _, f := range files {
		l, err := readLesson(fsys, f)
		if err != nil {
			return err
		}
		if l.Topic == "" {
			l.Topic = topic
		}
		if l.Exercise != nil && l.Exercise.ID == "" {
			l.Exercise.ID = l.ID
		}
		if prev, dup := c.byID[l.ID]; dup {
			return fmt.Errorf("lesson %q in %s duplicates one in topic %s", l.ID, f, prev.Topic)
		}
		c.byID[l.ID] = l
		lessons = append(lessons, l)
	}
	// Files are already in name order; a stable sort keeps it for equal orders.
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	if len(lessons) > 0 {
		c.lessons[topic] = lessons
	}
	return nil
}

func readLesson(fsys fs.FS, name string) (*model.Lesson, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var doc lessonFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.Lesson == nil {
		return nil, fmt.Errorf("parse %s: missing top-level lesson key", name)
	}
	if doc.Lesson.ID == "" {
		doc.Lesson.ID = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	if doc.Lesson.Exercise != nil {
		if err := validateHints(doc.Lesson.Exercise.Hints); err != nil {
			return nil, fmt.Errorf("lesson %s: %w", doc.Lesson.ID, err)
		}
	}
	return doc.Lesson, nil
}

// validateHints enforces unique, ascending hint levels.
func validateHints(hints []model.Hint) error {
	for i, h := range hints {
		if h.Level < 1 {
			return fmt.Errorf("hint level %d must be at least 1", h.Level)
		}
		if i > 0 && h.Level <= hints[i-1].Level {
			return fmt.Errorf("hint levels must be unique and ascending, got %d after %d", h.Level, hints[i-1].Level)
		}
	}
	return nil
}

func (c *Catalog) loadTopics(fsys fs.FS) error {
	data, err := fs.ReadFile(fsys, topicsFile)
	if errors.Is(err, fs.ErrNotExist) {
		for _, id := range c.topicIDs() {
			c.topics = append(c.topics, model.Topic{ID: id, Name: id, Status: "available"})
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", topicsFile, err)
	}
	var doc topicsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", topicsFile, err)
	}
	for _, t := range doc.Topics {
		if t.Status == "" {
			t.Status = "available"
		}
		if !model.ValidTopicStatuses[t.Status] {
			return fmt.Errorf("topic %s: invalid status %q", t.ID, t.Status)
		}
		c.topics = append(c.topics, t)
	}
	return nil
}

func (c *Catalog) topicIDs() []string {
	ids := make([]string, 0, len(c.lessons))
	for id := range c.lessons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Topics lists the curriculum topics in display order.
func (c *Catalog) Topics() []model.Topic {
	return append([]model.Topic(nil), c.topics...)
}

// AllLessons returns a topic's lessons in order.
func (c *Catalog) AllLessons(topic string) []*model.Lesson {
	return append([]*model.Lesson(nil), c.lessons[topic]...)
}

// FirstLesson returns the first lesson of a topic.
func (c *Catalog) FirstLesson(topic string) (*model.Lesson, bool) {
	ls := c.lessons[topic]
	if len(ls) == 0 {
		return nil, false
	}
	return ls[0], true
}

// Next returns the lesson after lessonID in topic.
func (c *Catalog) Next(topic, lessonID string) (*model.Lesson, bool) {
	return c.step(topic, lessonID, 1)
}

// Previous returns the lesson before lessonID in topic.
func (c *Catalog) Previous(topic, lessonID string) (*model.Lesson, bool) {
	return c.step(topic, lessonID, -1)
}

func (c *Catalog) step(topic, lessonID string, delta int) (*model.Lesson, bool) {
	ls := c.lessons[topic]
	for i, l := range ls {
		if l.ID != lessonID {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(ls) {
			return nil, false
		}
		return ls[j], true
	}
	return nil, false
}

// ByID finds a lesson in any topic.
func (c *Catalog) ByID(lessonID string) (*model.Lesson, bool) {
	l, ok := c.byID[lessonID]
	return l, ok
}
