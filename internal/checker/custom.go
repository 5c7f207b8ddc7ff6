package checker

import (
	"fmt"
	"sort"
	"strings"
)

// CustomFunc checks a parsed document. The message describes the outcome
// and may be empty on success.
type CustomFunc func(doc map[string]any, args Args) (passed bool, message string, err error)

// Args are the named arguments a custom rule passes to its validator
type Args map[string]any

// String returns the named argument as a string. When the argument is
// absent, def is returned; with no default the argument is required.
func (a Args) String(name string, def ...string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		if len(def) > 0 {
			return def[0], nil
		}
		return "", fmt.Errorf("missing argument %q", name)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

var operationMethods = []string{"get", "post", "put", "delete", "patch", "options", "head"}

var customValidators = map[string]CustomFunc{
	"has_path_parameter":      hasPathParameter,
	"uses_component_ref":      usesComponentRef,
	"security_scheme_applied": securitySchemeApplied,
	"response_has_schema":     responseHasSchema,
	"has_operation_id":        hasOperationID,
	"has_request_body":        hasRequestBody,
}

// CustomValidators lists the registered custom validator names, sorted
func CustomValidators() []string {
	names := make([]string, 0, len(customValidators))
	for name := range customValidators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func isPathParam(p any, name string) bool {
	m := asMap(p)
	return m != nil && m["name"] == name && m["in"] == "path"
}

func hasPathParameter(doc map[string]any, args Args) (bool, string, error) {
	path, err := args.String("path")
	if err != nil {
		return false, "", err
	}
	name, err := args.String("param_name")
	if err != nil {
		return false, "", err
	}

	item := asMap(asMap(doc["paths"])[path])
	for _, p := range asList(item["parameters"]) {
		if isPathParam(p, name) {
			return true, fmt.Sprintf("Path parameter '%s' found", name), nil
		}
	}
	for _, method := range operationMethods {
		for _, p := range asList(asMap(item[method])["parameters"]) {
			if isPathParam(p, name) {
				return true, fmt.Sprintf("Path parameter '%s' found in %s", name, strings.ToUpper(method)), nil
			}
		}
	}
	return false, fmt.Sprintf("Path parameter '%s' not found in '%s'", name, path), nil
}

func usesComponentRef(doc map[string]any, args Args) (bool, string, error) {
	kind, err := args.String("component_type")
	if err != nil {
		return false, "", err
	}
	name, err := args.String("component_name")
	if err != nil {
		return false, "", err
	}

	ref := fmt.Sprintf("#/components/%s/%s", kind, name)
	if containsRef(doc, ref) {
		return true, fmt.Sprintf("Reference to %s found", ref), nil
	}
	return false, fmt.Sprintf("No reference to %s found", ref), nil
}

func containsRef(node any, ref string) bool {
	switch t := node.(type) {
	case map[string]any:
		if t["$ref"] == ref {
			return true
		}
		for _, v := range t {
			if containsRef(v, ref) {
				return true
			}
		}
	case []any:
		for _, v := range t {
			if containsRef(v, ref) {
				return true
			}
		}
	}
	return false
}

func securitySchemeApplied(doc map[string]any, args Args) (bool, string, error) {
	scheme, err := args.String("scheme_name")
	if err != nil {
		return false, "", err
	}
	scope, _ := args.String("scope", "global")

	if scope == "global" {
		for _, req := range asList(doc["security"]) {
			if _, ok := asMap(req)[scheme]; ok {
				return true, fmt.Sprintf("Security scheme '%s' applied globally", scheme), nil
			}
		}
		return false, fmt.Sprintf("Security scheme '%s' not found in global security", scheme), nil
	}

	paths := asMap(doc["paths"])
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := asMap(paths[path])
		for _, method := range operationMethods[:5] {
			for _, req := range asList(asMap(item[method])["security"]) {
				if _, ok := asMap(req)[scheme]; ok {
					return true, fmt.Sprintf("Security scheme '%s' applied to %s %s", scheme, strings.ToUpper(method), path), nil
				}
			}
		}
	}
	return false, fmt.Sprintf("Security scheme '%s' not applied to any operation", scheme), nil
}

// lookup walks keys from doc, reporting the first key that is missing
func lookup(doc map[string]any, keys ...string) (map[string]any, string) {
	node := doc
	for _, k := range keys {
		v, ok := node[k]
		if !ok {
			return nil, k
		}
		m := asMap(v)
		if m == nil {
			return nil, k
		}
		node = m
	}
	return node, ""
}

func operationArgs(args Args) (path, method string, err error) {
	if path, err = args.String("path"); err != nil {
		return "", "", err
	}
	if method, err = args.String("method"); err != nil {
		return "", "", err
	}
	return path, method, nil
}

func responseHasSchema(doc map[string]any, args Args) (bool, string, error) {
	path, method, err := operationArgs(args)
	if err != nil {
		return false, "", err
	}
	status, err := args.String("status_code")
	if err != nil {
		return false, "", err
	}
	mediaType, _ := args.String("media_type", "application/json")

	resp, missing := lookup(doc, "paths", path, method, "responses", status)
	if resp == nil {
		return false, fmt.Sprintf("Missing path component: '%s'", missing), nil
	}

	media := asMap(asMap(resp["content"])[mediaType])
	_, hasSchema := media["schema"]
	_, hasRef := media["$ref"]
	if hasSchema || hasRef {
		return true, fmt.Sprintf("Schema found for %s %s %s", strings.ToUpper(method), path, status), nil
	}
	return false, fmt.Sprintf("No schema for %s %s %s %s", strings.ToUpper(method), path, status, mediaType), nil
}

func hasOperationID(doc map[string]any, args Args) (bool, string, error) {
	path, method, err := operationArgs(args)
	if err != nil {
		return false, "", err
	}

	op, _ := lookup(doc, "paths", path, method)
	if op == nil {
		return false, fmt.Sprintf("Operation %s %s not found", strings.ToUpper(method), path), nil
	}
	if _, ok := op["operationId"]; ok {
		return true, fmt.Sprintf("operationId found for %s %s", strings.ToUpper(method), path), nil
	}
	return false, fmt.Sprintf("operationId missing for %s %s", strings.ToUpper(method), path), nil
}

func hasRequestBody(doc map[string]any, args Args) (bool, string, error) {
	path, method, err := operationArgs(args)
	if err != nil {
		return false, "", err
	}
	mediaType, _ := args.String("media_type", "application/json")

	op, _ := lookup(doc, "paths", path, method)
	if op == nil {
		return false, fmt.Sprintf("Operation %s %s not found", strings.ToUpper(method), path), nil
	}
	if _, ok := asMap(asMap(op["requestBody"])["content"])[mediaType]; ok {
		return true, fmt.Sprintf("Request body with %s found for %s %s", mediaType, strings.ToUpper(method), path), nil
	}
	return false, fmt.Sprintf("Request body with %s not found for %s %s", mediaType, strings.ToUpper(method), path), nil
}
