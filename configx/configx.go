// Package configx loads configuration from the environment and files into tagged structs.
//
// Overview:
//   - Responsibility: Merge configuration sources, bind into structs, validate
//   - Key Types: Source interface, EnvSource, FileSource
//   - Concurrency Model: Load is safe for concurrent use; results are plain values
//   - Error Semantics: Load returns errors for unreadable sources, bad values and failed validation
//   - Performance Notes: One pass per source; configuration is loaded once at startup
//
// Usage:
//
//	var cfg mhvcf.Config
//	err := configx.Load(ctx, &cfg,
//	  configx.NewFileSource("evss.yaml", configx.FileOptions{Optional: true}),
//	  configx.NewEnvSource(configx.EnvOptions{}),
//	)
package configx

import (
	"context"
	"fmt"

	"go.eggybyte.com/evss/configx/internal"
)

// Source describes a configuration source producing a flat key/value snapshot.
// Keys are the values of `env` struct tags.
type Source = internal.Source

// EnvOptions configures environment variable source behavior.
type EnvOptions = internal.EnvOptions

// FileOptions configures file source behavior.
type FileOptions = internal.FileOptions

// NewEnvSource creates a source reading environment variables.
func NewEnvSource(opts EnvOptions) Source {
	return internal.NewEnvSource(opts)
}

// NewFileSource creates a source reading a YAML or JSON file.
// Nested keys are flattened with "_" and upper-cased.
func NewFileSource(path string, opts FileOptions) Source {
	return internal.NewFileSource(path, opts)
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	skipValidation bool
	validatorOpts  []ValidatorOption
}

// WithoutValidation skips struct validation after binding.
func WithoutValidation() LoadOption {
	return func(c *loadConfig) {
		c.skipValidation = true
	}
}

// WithValidatorOptions customizes the validator used after binding.
func WithValidatorOptions(opts ...ValidatorOption) LoadOption {
	return func(c *loadConfig) {
		c.validatorOpts = append(c.validatorOpts, opts...)
	}
}

// Snapshot loads every source in order and merges them; later sources win.
func Snapshot(ctx context.Context, sources ...Source) (map[string]string, error) {
	snapshots := make([]map[string]string, 0, len(sources))
	for i, src := range sources {
		s, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load source %d: %w", i, err)
		}
		snapshots = append(snapshots, s)
	}
	return internal.Merge(snapshots...), nil
}

// Load merges sources, binds the result into target using `env` and `default`
// tags, then validates target with `validate` tags.
func Load(ctx context.Context, target any, sources ...Source) error {
	return LoadWith(ctx, target, sources, nil)
}

// LoadWith is Load with options.
func LoadWith(ctx context.Context, target any, sources []Source, opts []LoadOption) error {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	snapshot, err := Snapshot(ctx, sources...)
	if err != nil {
		return err
	}

	if err := Bind(snapshot, target); err != nil {
		return err
	}

	if cfg.skipValidation {
		return nil
	}
	return ValidateStruct(NewValidator(cfg.validatorOpts...), target)
}

// Bind decodes a snapshot into a struct with env tags and default values.
func Bind(snapshot map[string]string, target any) error {
	if err := internal.BindToStruct(snapshot, target); err != nil {
		return fmt.Errorf("bind config: %w", err)
	}
	return nil
}
