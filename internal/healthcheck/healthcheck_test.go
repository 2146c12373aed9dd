package healthcheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l3aro/go-program-graph/internal/config"
)

func TestCheckWithNilConfig(t *testing.T) {
	_, err := Check(context.Background(), nil, "", "")
	if err == nil {
		t.Error("Expected error for nil config, got nil")
	}
}

func TestCheckReady(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tool.Path = "sh"
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")

	result, err := Check(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	if _, lookErr := os.Stat("/bin/sh"); lookErr == nil && result.Tool.Status != StatusReady {
		t.Errorf("Tool.Status = %q (%s), want ready", result.Tool.Status, result.Tool.Error)
	}
	if result.Vocabulary.Status != StatusReady {
		t.Errorf("Vocabulary.Status = %q (%s), want ready", result.Vocabulary.Status, result.Vocabulary.Error)
	}
	if !strings.Contains(result.Vocabulary.Detail, "157 spellings") {
		t.Errorf("Vocabulary.Detail = %q, want the built-in table", result.Vocabulary.Detail)
	}
	if result.Cache.Status != StatusReady {
		t.Errorf("Cache.Status = %q (%s), want ready", result.Cache.Status, result.Cache.Error)
	}
	if _, err := os.Stat(cfg.Cache.Dir); err != nil {
		t.Errorf("cache dir was not created: %v", err)
	}
}

func TestCheckMissingTool(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tool.Path = "pgraph-no-such-tool"
	cfg.Cache.Enabled = false

	result, err := Check(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	if result.Tool.Status != StatusError {
		t.Errorf("Tool.Status = %q, want error", result.Tool.Status)
	}
	if result.Cache.Status != StatusDisabled {
		t.Errorf("Cache.Status = %q, want disabled", result.Cache.Status)
	}
	if result.Healthy() {
		t.Error("Healthy() = true with a missing tool")
	}
	if len(result.Components()) != 3 {
		t.Errorf("Components() = %d entries, want 3", len(result.Components()))
	}
}

func TestCheckBadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Vocabulary = path
	cfg.Cache.Enabled = false

	result, err := Check(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if result.Vocabulary.Status != StatusError || result.Vocabulary.Error == "" {
		t.Errorf("Vocabulary = %+v, want an error", result.Vocabulary)
	}
}

func TestScopeFromPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"empty path", "", ""},
		{"project path", "/project/.pgraph/config.yaml", "project"},
	}
	if home != "" {
		tests = append(tests, struct {
			name     string
			path     string
			expected string
		}{"global path", filepath.Join(home, ".pgraph", "config.yaml"), "global"})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scopeFromPath(tt.path); got != tt.expected {
				t.Errorf("scopeFromPath(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}
