package rules

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects how a submitted document is dumped for display
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a raw string into a Format; empty means JSON
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (must be one of: json, yaml)", ErrPrecondition, s)
}

// ContentType returns the HTTP media type for f
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Render writes doc to w as an indented structured dump
func Render(w io.Writer, doc *SubmittedExpression, format Format) error {
	if doc == nil {
		return fmt.Errorf("%w: no submitted expression to render", ErrPrecondition)
	}

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown format %q", ErrPrecondition, format)
	}

	return nil
}
