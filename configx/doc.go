// Package configx provides static configuration loading for the partner
// client.
//
// # Overview
//
// configx reads configuration from the environment and from YAML or JSON
// files, merges the snapshots deterministically (later sources win), binds
// the result into structs via `env` and `default` tags, and validates the
// bound struct with go-playground/validator.
//
// # Features
//
//   - Environment source with prefix filtering
//   - File source with nested keys flattened to env-style names
//   - Type-safe binding for strings, numbers, bools, durations and string lists
//   - The https_url validation rule for upstream base URLs
//
// # Usage
//
//	var cfg mhvcf.Config
//	if err := configx.Load(ctx, &cfg, configx.NewEnvSource(configx.EnvOptions{})); err != nil {
//		return err
//	}
//
// # Stability
//
// Configuration is loaded once; there is no hot reload.
package configx
