package logutil

import (
	"fmt"
	"sort"
	"strings"
)

// IsSensitiveField returns true when a form field id likely holds personal data.
// Rating inputs (age, experience, accidents) are not sensitive and are logged as-is.
func IsSensitiveField(fieldID string) bool {
	normalized := strings.ToLower(strings.TrimSpace(fieldID))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case strings.Contains(normalized, "name"):
		return true
	case strings.Contains(normalized, "address"):
		return true
	case strings.Contains(normalized, "city"):
		return true
	case strings.Contains(normalized, "postal"), strings.Contains(normalized, "zip"):
		return true
	case strings.Contains(normalized, "phone"):
		return true
	case strings.Contains(normalized, "email"):
		return true
	default:
		return false
	}
}

// RedactFieldValue redacts a value when the field id looks sensitive.
// Empty values stay visible so cleared fields can be told apart in logs.
func RedactFieldValue(fieldID, value string) string {
	if value == "" {
		return ""
	}
	if IsSensitiveField(fieldID) {
		return "[REDACTED]"
	}
	return value
}

// FormatFieldsForLog returns stable, redacted field text for logs.
func FormatFieldsForLog(fields map[string]string) string {
	if len(fields) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, RedactFieldValue(k, fields[k])))
	}
	return strings.Join(parts, "; ")
}

// TruncateForLog returns a single-line truncated preview for unstructured values.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxChars <= 0 || len(normalized) <= maxChars {
		return normalized
	}
	return normalized[:maxChars] + "... [truncated]"
}
