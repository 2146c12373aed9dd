// Package healthcheck verifies that the pieces a pgraph build depends on are in place.
package healthcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-program-graph/internal/config"
	"github.com/l3aro/go-program-graph/internal/tool"
	"github.com/l3aro/go-program-graph/pkg/vocab"
)

// Status values reported per component.
const (
	StatusReady    = "ready"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// ComponentStatus represents the health status of one dependency.
type ComponentStatus struct {
	Name   string
	Detail string // resolved path, vocabulary summary or cache dir
	Status string // "ready", "error" or "disabled"
	Error  string
}

// OK reports whether the component does not block a build.
func (s ComponentStatus) OK() bool {
	return s.Status != StatusError
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Tool           ComponentStatus
	Vocabulary     ComponentStatus
	Cache          ComponentStatus
}

// Healthy reports whether every component is usable.
func (r *HealthCheckResult) Healthy() bool {
	return r.Tool.OK() && r.Vocabulary.OK() && r.Cache.OK()
}

// Components lists the component statuses in display order.
func (r *HealthCheckResult) Components() []ComponentStatus {
	return []ComponentStatus{r.Tool, r.Vocabulary, r.Cache}
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(ctx context.Context, cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
		Tool:           checkTool(cfg.Tool.Path),
		Vocabulary:     checkVocabulary(ctx, cfg.Vocabulary),
		Cache:          checkCache(cfg.Cache),
	}, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}
	if home, err := os.UserHomeDir(); err == nil {
		if strings.HasPrefix(path, filepath.Join(home, config.Dir)+string(filepath.Separator)) {
			return "global"
		}
	}
	return "project"
}

// checkTool resolves the fact tool through PATH. It does not run it.
func checkTool(path string) ComponentStatus {
	status := ComponentStatus{Name: "tool", Detail: path}
	if path == "" {
		status.Status = StatusError
		status.Error = "tool path is not configured"
		return status
	}

	resolved, err := (&tool.Runner{Path: path}).Resolve()
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot find %s: %v", path, err)
		return status
	}
	status.Detail = resolved
	status.Status = StatusReady
	return status
}

// checkVocabulary loads the configured vocabulary, or the built-in one.
func checkVocabulary(ctx context.Context, location string) ComponentStatus {
	status := ComponentStatus{Name: "vocabulary", Detail: location}
	v, err := vocab.Load(ctx, location)
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	status.Detail = fmt.Sprintf("%s (%d spellings, width %d)", v.Source(), v.Len(), v.Width())
	status.Status = StatusReady
	return status
}

// checkCache makes sure the cache directory exists and is writable.
func checkCache(cfg config.CacheConfig) ComponentStatus {
	status := ComponentStatus{Name: "cache", Detail: cfg.Dir}
	if !cfg.Enabled {
		status.Status = StatusDisabled
		return status
	}
	if cfg.Dir == "" {
		status.Status = StatusReady
		status.Detail = "memory only"
		return status
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot create %s: %v", cfg.Dir, err)
		return status
	}
	probe, err := os.CreateTemp(cfg.Dir, ".probe-*")
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("%s is not writable: %v", cfg.Dir, err)
		return status
	}
	probe.Close()
	os.Remove(probe.Name())

	status.Status = StatusReady
	return status
}
