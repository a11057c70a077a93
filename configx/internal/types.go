// Package internal provides internal implementation details for configx.
package internal

import "context"

// Source describes a configuration source that produces a flat key/value snapshot.
// Implementations must be safe for concurrent use and honor context cancellation.
type Source interface {
	// Load reads the current configuration snapshot.
	Load(ctx context.Context) (map[string]string, error)
}

// Merge combines snapshots in order; later snapshots override earlier ones.
func Merge(snapshots ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, s := range snapshots {
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged
}
