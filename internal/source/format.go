// Package source implements source readers (spec.md §4.1): format
// detection, parallel fetch from file/URL, and transitive @link resolution
// with cycle detection.
package source

import (
	"strings"
)

// Format is a detected configuration source format.
type Format string

const (
	FormatSDL     Format = "sdl"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatUnknown Format = ""
)

// Detect determines a source's format, first by extension, then by content
// sniffing (spec.md §4.1: ".graphql"/".gql" → SDL; ".json" → JSON;
// ".yml"/".yaml" → YAML, else content sniffing).
func Detect(name string, content []byte) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".graphql"), strings.HasSuffix(lower, ".gql"):
		return FormatSDL
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	case strings.HasSuffix(lower, ".yml"), strings.HasSuffix(lower, ".yaml"):
		return FormatYAML
	}
	return sniff(content)
}

func sniff(content []byte) Format {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return FormatUnknown
	}
	switch trimmed[0] {
	case '{', '[':
		return FormatJSON
	}
	if strings.Contains(trimmed, "type ") || strings.Contains(trimmed, "schema ") || strings.Contains(trimmed, "directive @") {
		return FormatSDL
	}
	return FormatYAML
}
