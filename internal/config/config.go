// Package config loads compact-lint configuration: per-rule severity
// overrides, input limits, policy toggles and source file patterns.
// Configuration tunes presentation and gating; the rule table itself is
// separate, versioned data (internal/rules).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level configuration for compact-lint.
type Config struct {
	// Sources is a list of glob patterns for contract files
	Sources []string `json:"sources,omitempty"`

	// Lint contains rule severity configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// LintConfig contains rule configuration.
type LintConfig struct {
	// Rules maps rule ids to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`

	// FailOn sets the exit-code gate: "error" (default), "warning", "never"
	FailOn string `json:"failOn,omitempty"`
}

// AnalysisConfig contains analysis options.
type AnalysisConfig struct {
	// MaxInputBytes caps the size of a single source (0 = default cap)
	MaxInputBytes int `json:"maxInputBytes,omitempty"`

	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty"`

	// Policies enables structural policy evaluation
	Policies *bool `json:"policies,omitempty"`

	// RuleTable points at an external CUE rule table (empty = embedded)
	RuleTable string `json:"ruleTable,omitempty"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sources: []string{"*.compact", "**/*.compact"},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
			FailOn:         "error",
		},
		Analysis: AnalysisConfig{
			Policies: boolPtr(true),
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file.
// Search order:
//  1. ./compact_lint.json (current working directory)
//  2. ./.compact_lint.json (current working directory)
//  3. <rootPath>/compact_lint.json (if different from cwd)
//  4. ~/.config/compact_lint/config.json
//
// Returns DefaultConfig if no config file is found.
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "compact_lint.json"),
		filepath.Join(cwd, ".compact_lint.json"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "compact_lint.json"),
				filepath.Join(rootPath, ".compact_lint.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "compact_lint", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults.
func (c *Config) applyDefaults() {
	if len(c.Sources) == 0 {
		c.Sources = []string{"*.compact", "**/*.compact"}
	}
	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
	if c.Lint.FailOn == "" {
		c.Lint.FailOn = "error"
	}
	if c.Analysis.Policies == nil {
		c.Analysis.Policies = boolPtr(true)
	}
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetRuleSeverity returns the configured severity for a rule, or the
// default if not configured.
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off".
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true
}

// PoliciesEnabled reports whether structural policy evaluation is on.
func (c *Config) PoliciesEnabled() bool {
	return c.Analysis.Policies == nil || *c.Analysis.Policies
}

// ShouldIgnoreFile checks if a file should be skipped entirely.
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
