package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lumicast-ai/lumicast/pkg/models"
)

// NormalizeParams produces the canonical form of request parameters: strings
// are case-folded and whitespace-collapsed, numbers pass through, string
// lists are sorted, nested mappings recurse, everything else is stringified.
// Two semantically equivalent parameter sets normalize identically.
func NormalizeParams(params models.Params) models.Params {
	normalized := make(models.Params, len(params))
	for key, value := range params {
		normalized[key] = normalizeValue(value)
	}
	return normalized
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case string:
		return strings.Join(strings.Fields(strings.ToLower(v)), " ")
	case int, int32, int64, float32, float64:
		return v
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		sort.Strings(out)
		return out
	case []any:
		strs := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return v
			}
			strs = append(strs, s)
		}
		sort.Strings(strs)
		return strs
	case map[string]any:
		return map[string]any(NormalizeParams(v))
	case models.Params:
		return NormalizeParams(v)
	case nil:
		return nil
	default:
		return fmt.Sprintf("%v", v)
	}
}

// CanonicalKey derives the deterministic lookup key for a cache type and
// parameter set. encoding/json writes map keys in sorted order, so the key
// is independent of input ordering.
func CanonicalKey(cacheType models.CacheType, params models.Params) string {
	normalized := NormalizeParams(params)
	data, _ := json.Marshal(normalized)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("content_cache:%s:%x", cacheType, sum[:8])
}

// ContentHash computes the integrity hash of a cached payload. It is used
// for dedup reporting, never for lookup.
func ContentHash(content models.Payload) string {
	data, _ := json.Marshal(content)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
