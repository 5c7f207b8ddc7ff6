// Package syntax parses YAML/JSON OpenAPI documents and reports syntax
// errors with line and column positions.
package syntax

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
)

var linePattern = regexp.MustCompile(`line (\d+)(?:, column (\d+))?`)

// Check reports syntax errors in text. Blank input has no errors.
// Only the first error is reported.
func Check(text string) []domain.SyntaxError {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var doc any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return []domain.SyntaxError{fromYAMLError(err)}
	}
	return nil
}

// Parse decodes text into a document tree with string keys at every level.
// Unlike Check, an empty document or a non-mapping root is an error.
func Parse(text string) (map[string]any, []domain.SyntaxError) {
	var raw any
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, []domain.SyntaxError{fromYAMLError(err)}
	}
	if raw == nil {
		return nil, []domain.SyntaxError{{Line: 1, Column: 1, Message: "Empty document"}}
	}

	doc, ok := Normalize(raw).(map[string]any)
	if !ok {
		return nil, []domain.SyntaxError{{Line: 1, Column: 1, Message: "OpenAPI document must be an object"}}
	}
	return doc, nil
}

// Normalize converts map[any]any produced for non-string keys (such as
// unquoted status codes) into map[string]any, recursively.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}

func fromYAMLError(err error) domain.SyntaxError {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	if rest, ok := strings.CutPrefix(msg, "unmarshal errors:\n"); ok {
		msg = strings.TrimSpace(rest)
	}
	msg, _, _ = strings.Cut(msg, "\n")

	se := domain.SyntaxError{Line: 1, Column: 1, Message: msg}
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			se.Line = n
		}
		if m[2] != "" {
			if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
				se.Column = n
			}
		}
		se.Message = strings.TrimSpace(strings.TrimPrefix(strings.Replace(msg, m[0], "", 1), ":"))
	}
	if se.Message == "" {
		se.Message = "Invalid YAML syntax"
	}
	return se
}
