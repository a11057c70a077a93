package clientx

import (
	"sort"

	"github.com/huandu/xstrings"
)

// NormalizeKeys returns v with every object key rewritten from camelCase to
// snake_case, recursing through objects and arrays. Scalars are returned as is.
// Applying it twice gives the same result as applying it once.
//
// When several keys map to the same snake_case key, a key that is already
// snake_case wins; otherwise the lexically smallest original key wins.
func NormalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(t))
		for _, k := range keys {
			if xstrings.ToSnakeCase(k) == k {
				out[k] = NormalizeKeys(t[k])
			}
		}
		for _, k := range keys {
			nk := xstrings.ToSnakeCase(k)
			if _, taken := out[nk]; taken {
				continue
			}
			out[nk] = NormalizeKeys(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = NormalizeKeys(val)
		}
		return out
	default:
		return v
	}
}
