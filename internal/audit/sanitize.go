// Package audit implements the audit sanitizer and sink: sanitized
// action records appended to the audit_log collection, never raising on
// write failure (spec §3, §9 "Sanitization depth").
package audit

import "strings"

// Caps matching spec §3/§9: recursion depth 5, string truncation 500
// chars, list truncation 50 elements — preserved exactly to avoid
// log-explosion attacks via nested payloads.
const (
	maxDepth       = 5
	maxStringLen   = 500
	maxListLen     = 50
)

var maskedKeyFragments = []string{"password", "secret", "token", "key", "authorization"}

// Sanitize deep-copies v, masking sensitive keys and truncating oversized
// strings/lists, for safe inclusion in an AuditRecord's params/result.
func Sanitize(v any) any {
	return sanitize(v, 0)
}

func sanitize(v any, depth int) any {
	if depth >= maxDepth {
		return "<max depth exceeded>"
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			if isSensitiveKey(k) {
				out[k] = "***"
				continue
			}
			out[k] = sanitize(vv, depth+1)
		}
		return out
	case []any:
		n := len(val)
		truncated := n > maxListLen
		if truncated {
			n = maxListLen
		}
		out := make([]any, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, sanitize(val[i], depth+1))
		}
		if truncated {
			out = append(out, "<list truncated>")
		}
		return out
	case string:
		if len(val) > maxStringLen {
			return val[:maxStringLen] + "<truncated>"
		}
		return val
	default:
		return val
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range maskedKeyFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
