package checker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type stepKind int

const (
	stepKey stepKind = iota
	stepIndex
	stepWildcard
)

type step struct {
	kind  stepKind
	key   string
	index int
}

// compilePath parses the subset of JSONPath used by scenario rules:
// $ root, .key, ['key'], ["key"], [n], [*] and .*
func compilePath(expr string) ([]step, error) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "$") {
		return nil, fmt.Errorf("path %q must start with $", expr)
	}

	var steps []step
	rest := expr[1:]
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			name := rest[:end]
			if name == "" {
				return nil, fmt.Errorf("path %q: empty key", expr)
			}
			if name == "*" {
				steps = append(steps, step{kind: stepWildcard})
			} else {
				steps = append(steps, step{kind: stepKey, key: name})
			}
			rest = rest[end:]

		case '[':
			end := closingBracket(rest)
			if end < 0 {
				return nil, fmt.Errorf("path %q: unterminated bracket", expr)
			}
			inner := strings.TrimSpace(rest[1:end])
			rest = rest[end+1:]

			switch {
			case inner == "*":
				steps = append(steps, step{kind: stepWildcard})
			case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
				steps = append(steps, step{kind: stepKey, key: inner[1 : len(inner)-1]})
			default:
				n, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("path %q: invalid index %q", expr, inner)
				}
				steps = append(steps, step{kind: stepIndex, index: n})
			}

		default:
			return nil, fmt.Errorf("path %q: unexpected %q", expr, rest[0])
		}
	}
	return steps, nil
}

// closingBracket finds the ] matching the [ at s[0], skipping quoted text
func closingBracket(s string) int {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

// findPath returns every value in doc addressed by expr
func findPath(doc any, expr string) ([]any, error) {
	steps, err := compilePath(expr)
	if err != nil {
		return nil, err
	}

	current := []any{doc}
	for _, s := range steps {
		var next []any
		for _, node := range current {
			next = append(next, apply(s, node)...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		current = next
	}
	return current, nil
}

func apply(s step, node any) []any {
	switch s.kind {
	case stepKey:
		if m, ok := node.(map[string]any); ok {
			if v, found := m[s.key]; found {
				return []any{v}
			}
		}
	case stepIndex:
		if list, ok := node.([]any); ok {
			i := s.index
			if i < 0 {
				i += len(list)
			}
			if i >= 0 && i < len(list) {
				return []any{list[i]}
			}
		}
	case stepWildcard:
		switch t := node.(type) {
		case []any:
			return append([]any(nil), t...)
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			out := make([]any, 0, len(keys))
			for _, k := range keys {
				out = append(out, t[k])
			}
			return out
		}
	}
	return nil
}
