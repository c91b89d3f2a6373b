package vbasync

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
)

// DefaultConfigFile is read from the working directory when present.
const DefaultConfigFile = ".vbasync.yaml"

// FolderSuffix is appended to the document's base name when no folder is
// configured.
const FolderSuffix = ".src"

// Config selects what a run works on.
type Config struct {
	Action                  string `yaml:"action"`
	Document                string `yaml:"document"`
	Folder                  string `yaml:"folder"`
	AllowNewDocumentModules bool   `yaml:"allow_new_document_modules"`
	// DiffTool is an external program run as "<tool> <old> <new>" to
	// preview a module. Empty renders a unified diff instead.
	DiffTool string `yaml:"diff_tool"`
	LogLevel string `yaml:"log_level"`
}

// ConfigError reports an unusable configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// LoadConfig reads a YAML configuration file. Unknown keys are rejected.
func LoadConfig(fsys filesystem.ReadFS, name string) (Config, error) {
	var cfg Config
	data, err := filesystem.ReadFile(fsys, name)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Merge returns c with every non-empty field of override applied.
func (c Config) Merge(override Config) Config {
	if override.Action != "" {
		c.Action = override.Action
	}
	if override.Document != "" {
		c.Document = override.Document
	}
	if override.Folder != "" {
		c.Folder = override.Folder
	}
	if override.AllowNewDocumentModules {
		c.AllowNewDocumentModules = true
	}
	if override.DiffTool != "" {
		c.DiffTool = override.DiffTool
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	return c
}

// Direction parses the configured action.
func (c Config) Direction() (core.Direction, error) {
	d, err := core.ParseDirection(c.Action)
	if err != nil {
		return d, &ConfigError{Field: "action", Reason: err.Error()}
	}
	return d, nil
}

// Validate fills defaults and checks that a run can start from c.
func (c Config) Validate() (Config, error) {
	if c.Document == "" {
		return c, &ConfigError{Field: "document", Reason: "is required"}
	}
	if !validPath(c.Document) {
		return c, &ConfigError{Field: "document", Reason: fmt.Sprintf("%q is not a relative slash-separated path", c.Document)}
	}
	if c.Folder == "" {
		c.Folder = strings.TrimSuffix(c.Document, path.Ext(c.Document)) + FolderSuffix
	}
	if !validPath(c.Folder) {
		return c, &ConfigError{Field: "folder", Reason: fmt.Sprintf("%q is not a relative slash-separated path", c.Folder)}
	}
	if _, err := c.Direction(); err != nil {
		return c, err
	}
	if _, err := LogLevelFromString(c.LogLevel); err != nil {
		return c, &ConfigError{Field: "log_level", Reason: err.Error()}
	}
	return c, nil
}

func validPath(p string) bool {
	return p != "." && !strings.HasPrefix(p, "/") && path.Clean(p) == p && !strings.HasPrefix(p, "../") && p != ".."
}
