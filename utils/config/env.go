package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kris-hansen/tagup/utils/fileutil"
)

// Global verbosity switches, set once by the root command.
var (
	Verbose bool
	Debug   bool
)

// ErrModelNotFound is returned when a model name is not present in the catalog
var ErrModelNotFound = errors.New("model not found in configuration")

// BackendConfig describes how to reach a generation backend
type BackendConfig struct {
	// Kind is "openai" (OpenAI-compatible completions, e.g. vLLM) or "http"
	// (the tagup generation sidecar protocol).
	Kind       string        `yaml:"kind"`
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// ModelConfig is one entry of the model catalog
type ModelConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Backend string `yaml:"backend"`
	// RemoteModel is the model id sent to the backend. Defaults to Repo.
	RemoteModel string `yaml:"remote_model,omitempty"`
	Repo        string `yaml:"repo,omitempty"`
	Tokenizer   string `yaml:"tokenizer"`

	// PromptTemplateID selects a single template for single-stage families.
	PromptTemplateID string `yaml:"prompt_template_id,omitempty"`
	// PromptTemplateIDs maps template names ("translation", "extension")
	// to template ids for multi-stage families.
	PromptTemplateIDs map[string]string `yaml:"prompt_template_ids,omitempty"`
}

// Remote returns the model id to send to the backend
func (m ModelConfig) Remote() string {
	if m.RemoteModel != "" {
		return m.RemoteModel
	}
	return m.Repo
}

// LogConfig controls the structured logger
type LogConfig struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	JSON       bool   `yaml:"json,omitempty"`
}

// EnvConfig is the contents of ~/.tagup/config.yaml
type EnvConfig struct {
	DefaultModel    string                   `yaml:"default_model"`
	TagsDir         string                   `yaml:"tags_dir"`
	BanTemplateDir  string                   `yaml:"ban_template_dir"`
	HistoryPath     string                   `yaml:"history_path,omitempty"`
	Log             LogConfig                `yaml:"log,omitempty"`
	Server          ServerConfig             `yaml:"server"`
	Backends        map[string]BackendConfig `yaml:"backends"`
	Models          []ModelConfig            `yaml:"models"`
	PromptTemplates map[string]string        `yaml:"prompt_templates,omitempty"`
}

// GetEnvPath returns the config file path from TAGUP_CONFIG or the default location
func GetEnvPath() string {
	if p := os.Getenv("TAGUP_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tagup", "config.yaml")
	}
	return filepath.Join(home, ".tagup", "config.yaml")
}

// DefaultEnvConfig returns the configuration used when no config file exists
func DefaultEnvConfig() *EnvConfig {
	return &EnvConfig{
		TagsDir:        "~/.tagup/tags",
		BanTemplateDir: "~/.tagup/tags/ban_template",
		Server:         DefaultServerConfig(),
		Backends:       map[string]BackendConfig{},
	}
}

// LoadEnvConfig reads and validates the config file at path. A missing file
// yields the default configuration.
func LoadEnvConfig(path string) (*EnvConfig, error) {
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand config path: %w", err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			DebugLog("Config file %s not found, using defaults", expanded)
			return DefaultEnvConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseEnvConfig(data)
}

// SaveEnvConfig writes cfg to path as YAML. The file is readable by the owner
// only since it may hold API keys and the server token.
func SaveEnvConfig(path string, cfg *EnvConfig) error {
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	DebugLog("Configuration saved to %s", expanded)
	return nil
}

// ParseEnvConfig decodes YAML config data on top of the defaults
func ParseEnvConfig(data []byte) (*EnvConfig, error) {
	cfg := DefaultEnvConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerConfig().Port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks references between models, backends and templates
func (c *EnvConfig) Validate() error {
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model entry without name")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate model name %q", m.Name)
		}
		seen[m.Name] = true

		if m.Version == "" {
			return fmt.Errorf("model %q: version is required", m.Name)
		}
		if m.Backend != "" {
			if _, ok := c.Backends[m.Backend]; !ok {
				return fmt.Errorf("model %q: unknown backend %q", m.Name, m.Backend)
			}
		}
		if m.PromptTemplateID != "" {
			if _, ok := c.PromptTemplates[m.PromptTemplateID]; !ok {
				return fmt.Errorf("model %q: unknown prompt template %q", m.Name, m.PromptTemplateID)
			}
		}
		for name, id := range m.PromptTemplateIDs {
			if _, ok := c.PromptTemplates[id]; !ok {
				return fmt.Errorf("model %q: template %q refers to unknown prompt template %q", m.Name, name, id)
			}
		}
	}
	for name, b := range c.Backends {
		switch b.Kind {
		case "openai", "http":
		default:
			return fmt.Errorf("backend %q: unsupported kind %q", name, b.Kind)
		}
		if b.Endpoint == "" {
			return fmt.Errorf("backend %q: endpoint is required", name)
		}
	}
	return nil
}

// GetModel looks up a catalog entry by name. An empty name selects DefaultModel.
func (c *EnvConfig) GetModel(name string) (ModelConfig, error) {
	if name == "" {
		name = c.DefaultModel
	}
	for _, m := range c.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return ModelConfig{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
}

// RemoveModel deletes the named model. DefaultModel is cleared when it
// pointed at the removed entry.
func (c *EnvConfig) RemoveModel(name string) error {
	for i, m := range c.Models {
		if m.Name != name {
			continue
		}
		c.Models = append(c.Models[:i], c.Models[i+1:]...)
		if c.DefaultModel == name {
			c.DefaultModel = ""
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrModelNotFound, name)
}

// ModelNames returns the catalog names in sorted order
func (c *EnvConfig) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// GetBackend returns the backend settings referenced by a model
func (c *EnvConfig) GetBackend(m ModelConfig) (BackendConfig, bool) {
	b, ok := c.Backends[m.Backend]
	return b, ok
}

// TemplatesFor resolves the configured prompt templates for a model. The
// result maps template names to template text with newlines removed; it is
// empty when the model relies on the family's built-in templates.
func (c *EnvConfig) TemplatesFor(m ModelConfig) map[string]string {
	out := make(map[string]string)
	if m.PromptTemplateID != "" {
		out["default"] = stripNewlines(c.PromptTemplates[m.PromptTemplateID])
	}
	for name, id := range m.PromptTemplateIDs {
		out[name] = stripNewlines(c.PromptTemplates[id])
	}
	return out
}

// TagListPaths returns the copyright and character list paths for a model version
func (c *EnvConfig) TagListPaths(version string) (copyright, character string, err error) {
	dir, err := fileutil.ExpandPath(c.TagsDir)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(dir, version, "copyright.txt"), filepath.Join(dir, version, "character.txt"), nil
}

var newlineStripper = strings.NewReplacer("\r", "", "\n", "")

func stripNewlines(s string) string {
	return newlineStripper.Replace(s)
}
