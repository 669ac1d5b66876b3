package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DSTUTOR_DB", "DSTUTOR_USER", "DSTUTOR_LOG", "DSTUTOR_MAX_STEPS", "DSTUTOR_FEEDBACK_PROVIDER"} {
		t.Setenv(k, "")
	}
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.UserID != "default" || c.LogMode != "dev" || c.MaxSteps != DefaultMaxSteps {
		t.Errorf("defaults = %+v", c)
	}
	if !strings.HasSuffix(c.DBPath, "progress.db") {
		t.Errorf("db path = %q", c.DBPath)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DSTUTOR_DB", "/tmp/x.db")
	t.Setenv("DSTUTOR_USER", "ada")
	t.Setenv("DSTUTOR_MAX_STEPS", "5000")
	t.Setenv("DSTUTOR_FEEDBACK_PROVIDER", "OpenAI")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DBPath != "/tmp/x.db" || c.UserID != "ada" || c.MaxSteps != 5000 || c.FeedbackProvider != "openai" {
		t.Errorf("config = %+v", c)
	}
}

func TestLoadBadSteps(t *testing.T) {
	for _, raw := range []string{"lots", "0", "-5"} {
		t.Setenv("DSTUTOR_MAX_STEPS", raw)
		if _, err := Load(); err == nil {
			t.Errorf("expected an error for step budget %q", raw)
		}
	}
}
