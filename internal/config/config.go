// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultMaxSteps is the interpreter step budget per execution when
// DSTUTOR_MAX_STEPS is unset.
const DefaultMaxSteps = 1_000_000

// Config holds process-wide settings. Command-line flags override it.
type Config struct {
	DBPath     string
	UserID     string
	LessonsDir string
	LogMode    string
	MaxSteps   uint64

	FeedbackProvider string
	FeedbackModel    string
	FeedbackURL      string
	AnthropicKey     string
	OpenAIKey        string
}

// Load reads the DSTUTOR_* variables and provider keys, applying defaults.
func Load() (Config, error) {
	c := Config{
		DBPath:           os.Getenv("DSTUTOR_DB"),
		UserID:           getenv("DSTUTOR_USER", "default"),
		LessonsDir:       os.Getenv("DSTUTOR_LESSONS"),
		LogMode:          getenv("DSTUTOR_LOG", "dev"),
		MaxSteps:         DefaultMaxSteps,
		FeedbackProvider: strings.ToLower(os.Getenv("DSTUTOR_FEEDBACK_PROVIDER")),
		FeedbackModel:    os.Getenv("DSTUTOR_FEEDBACK_MODEL"),
		FeedbackURL:      os.Getenv("DSTUTOR_FEEDBACK_URL"),
		AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
	}
	if c.DBPath == "" {
		home, _ := os.UserHomeDir()
		c.DBPath = filepath.Join(home, ".ds-tutor", "progress.db")
	}
	if raw := os.Getenv("DSTUTOR_MAX_STEPS"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c, fmt.Errorf("parse DSTUTOR_MAX_STEPS: %w", err)
		}
		if n == 0 {
			return c, fmt.Errorf("DSTUTOR_MAX_STEPS must be positive")
		}
		c.MaxSteps = n
	}
	return c, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
