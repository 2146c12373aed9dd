package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir is the directory name holding pgraph configuration, both in the home
// directory and in a project.
const Dir = ".pgraph"

// ToolConfig describes the external program that emits the fact stream.
type ToolConfig struct {
	// Path is the tool binary, resolved through PATH when not absolute.
	Path string `yaml:"path"`
	// Args are passed before the source file.
	Args []string `yaml:"args,omitempty"`
	// Timeout bounds one tool run.
	Timeout time.Duration `yaml:"timeout"`
}

// AnalysisConfig configures reaching definitions.
type AnalysisConfig struct {
	// MaxPasses caps the fixpoint. 0 derives the bound from the CFG's cycles.
	MaxPasses int `yaml:"max_passes"`
	// Merge is "union" or "first".
	Merge string `yaml:"merge"`
}

// EncodingConfig configures the numeric artifact.
type EncodingConfig struct {
	// ReverseEdges emits (target, source) pairs.
	ReverseEdges bool `yaml:"reverse_edges"`
}

// OutputConfig selects where and how artifacts are written.
type OutputConfig struct {
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// CacheConfig configures the artifact cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Size    int    `yaml:"size"`
}

// BatchConfig configures directory builds.
type BatchConfig struct {
	Workers int      `yaml:"workers"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Config holds all configuration for pgraph
type Config struct {
	Tool ToolConfig `yaml:"tool"`
	// Vocabulary is a path or URL of a spelling->index table. Empty uses the built-in C vocabulary.
	Vocabulary string         `yaml:"vocabulary,omitempty"`
	Analysis   AnalysisConfig `yaml:"analysis"`
	Encoding   EncodingConfig `yaml:"encoding"`
	Output     OutputConfig   `yaml:"output"`
	Cache      CacheConfig    `yaml:"cache"`
	Batch      BatchConfig    `yaml:"batch"`

	// Logging
	Verbose bool `yaml:"verbose"`
	JSONLog bool `yaml:"json_log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Tool: ToolConfig{
			Path:    "clang-graph",
			Timeout: 60 * time.Second,
		},
		Analysis: AnalysisConfig{
			MaxPasses: 8,
			Merge:     "union",
		},
		Output: OutputConfig{
			Format: "npz",
			Dir:    ".",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     defaultCacheDir(),
			Size:    128,
		},
		Batch: BatchConfig{
			Workers: 4,
			Include: []string{"**/*.c", "**/*.i"},
		},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pgraph")
	}
	return filepath.Join(Dir, "cache")
}

// GlobalConfigPath returns the global config file path (~/.pgraph/config.yaml)
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(Dir, "config.yaml")
	}
	return filepath.Join(home, Dir, "config.yaml")
}

// ProjectConfigPath returns the project-level config file path (./.pgraph/config.yaml)
func ProjectConfigPath() string {
	return filepath.Join(Dir, "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.pgraph/config.yaml)
// 3. Global config (~/.pgraph/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigPath(), ProjectConfigPath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies PGRAPH_* environment variables. Malformed numbers
// and durations are errors rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PGRAPH_TOOL"); v != "" {
		cfg.Tool.Path = v
	}
	if v := os.Getenv("PGRAPH_TOOL_ARGS"); v != "" {
		cfg.Tool.Args = strings.Fields(v)
	}
	if v := os.Getenv("PGRAPH_TOOL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PGRAPH_TOOL_TIMEOUT: %w", err)
		}
		cfg.Tool.Timeout = d
	}
	if v := os.Getenv("PGRAPH_VOCABULARY"); v != "" {
		cfg.Vocabulary = v
	}
	if v := os.Getenv("PGRAPH_MAX_PASSES"); v != "" {
		n, err := parseInt(v)
		if err != nil {
			return fmt.Errorf("PGRAPH_MAX_PASSES: %w", err)
		}
		cfg.Analysis.MaxPasses = n
	}
	if v := os.Getenv("PGRAPH_MERGE"); v != "" {
		cfg.Analysis.Merge = v
	}
	if v := os.Getenv("PGRAPH_REVERSE_EDGES"); v != "" {
		cfg.Encoding.ReverseEdges = parseBool(v)
	}
	if v := os.Getenv("PGRAPH_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("PGRAPH_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("PGRAPH_CACHE"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("PGRAPH_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("PGRAPH_WORKERS"); v != "" {
		n, err := parseInt(v)
		if err != nil {
			return fmt.Errorf("PGRAPH_WORKERS: %w", err)
		}
		cfg.Batch.Workers = n
	}
	if v := os.Getenv("PGRAPH_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	return nil
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.Tool.Path == "" {
		return fmt.Errorf("tool.path is required")
	}
	if c.Tool.Timeout < 0 {
		return fmt.Errorf("tool.timeout must be non-negative")
	}
	if c.Analysis.MaxPasses < 0 {
		return fmt.Errorf("analysis.max_passes must be non-negative (0 derives it from the CFG)")
	}
	switch c.Analysis.Merge {
	case "union", "first":
	default:
		return fmt.Errorf("invalid analysis.merge: %s (must be 'union' or 'first')", c.Analysis.Merge)
	}
	switch c.Output.Format {
	case "npz", "msgpack":
	default:
		return fmt.Errorf("invalid output.format: %s (must be 'npz' or 'msgpack')", c.Output.Format)
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive")
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive")
	}
	if len(c.Batch.Include) == 0 {
		return fmt.Errorf("batch.include needs at least one pattern")
	}
	return nil
}

func parseInt(s string) (int, error) {
	var i int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &i); err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return i, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
