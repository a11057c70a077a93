// Package internal provides internal implementation details for configx.
//
// Overview:
//   - Responsibility: Implement the environment and file configuration sources
//   - Key Types: EnvSource, FileSource
//   - Concurrency Model: Sources hold no mutable state and are safe for concurrent use
//   - Error Semantics: Sources return errors for unreadable or unparsable input
//   - Performance Notes: Files are read once per Load
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix     string // Only variables with this prefix are read (e.g., "EVSS_")
	TrimPrefix bool   // Strip the prefix from keys
}

// EnvSource loads configuration from environment variables.
type EnvSource struct {
	prefix     string
	trimPrefix bool
	environ    func() []string
}

// NewEnvSource creates a new environment variable source.
func NewEnvSource(opts EnvOptions) *EnvSource {
	return &EnvSource{
		prefix:     opts.Prefix,
		trimPrefix: opts.TrimPrefix,
		environ:    os.Environ,
	}
}

// Load reads configuration from environment variables.
func (s *EnvSource) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config := make(map[string]string)
	for _, env := range s.environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if s.prefix != "" && !strings.HasPrefix(key, s.prefix) {
			continue
		}
		if s.trimPrefix {
			key = strings.TrimPrefix(key, s.prefix)
		}
		config[key] = value
	}

	return config, nil
}

// FileOptions configures file source behavior.
type FileOptions struct {
	Format   string // File format: "json" or "yaml" (default: detected from extension)
	Optional bool   // A missing file yields an empty snapshot instead of an error
}

// FileSource loads configuration from a YAML or JSON file.
// Nested keys are flattened with "_" and upper-cased so that
//
//	mhvcf:
//	  base_url: https://example
//
// binds to the env tag MHVCF_BASE_URL.
type FileSource struct {
	path     string
	format   string
	optional bool
}

// NewFileSource creates a new file source.
func NewFileSource(path string, opts FileOptions) *FileSource {
	format := opts.Format
	if format == "" {
		format = detectFileFormat(path)
	}
	return &FileSource{
		path:     path,
		format:   format,
		optional: opts.Optional,
	}
}

// Load reads configuration from the file.
func (s *FileSource) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) && s.optional {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read file %s: %w", s.path, err)
	}

	config, err := parseConfigFile(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", s.path, err)
	}
	return config, nil
}

// detectFileFormat detects file format from extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// parseConfigFile parses configuration file content into a flat snapshot.
func parseConfigFile(data []byte, format string) (map[string]string, error) {
	var tree map[string]any
	switch format {
	case "json":
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	config := make(map[string]string)
	flatten("", tree, config)
	return config, nil
}

// flatten writes scalar leaves of tree into out under upper-cased, "_"-joined keys.
// Lists are joined with commas.
func flatten(prefix string, tree map[string]any, out map[string]string) {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch v := tree[k].(type) {
		case map[string]any:
			flatten(key, v, out)
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			out[key] = strings.Join(parts, ",")
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}
