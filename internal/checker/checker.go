// Package checker scores submitted OpenAPI documents against the
// requirements of a scenario.
package checker

import (
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/scenario"
	"github.com/felixgeelhaar/oaspractice/internal/syntax"
)

// Rule types understood by the checker
const (
	RuleExists   = "json_path_exists"
	RuleEquals   = "json_path_equals"
	RuleContains = "json_path_contains"
	RuleMatches  = "json_path_matches"
	RuleCustom   = "custom"
)

// Feedback messages
const (
	FeedbackSyntax   = "Your YAML has syntax errors. Please fix them before validation."
	FeedbackAllMet   = "Excellent work! Your OpenAPI specification meets all requirements."
	FeedbackNoneMet  = "Let's work through this step by step. Check the requirements and try again."
	feedbackProgress = "You're making progress! %d/%d requirements met."
	feedbackAlmost   = "Almost there! %d/%d requirements met. Review the failed checks."
)

type evalFunc func(doc map[string]any, req scenario.Requirement, cfg map[string]any) (bool, string, error)

// Checker runs the validation pipeline
type Checker struct {
	logger     *slog.Logger
	evaluators map[string]evalFunc
}

// New creates a checker
func New(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Checker{logger: logger}
	c.evaluators = map[string]evalFunc{
		RuleExists:   evalExists,
		RuleEquals:   evalEquals,
		RuleContains: evalContains,
		RuleMatches:  evalMatches,
		RuleCustom:   evalCustom,
	}
	return c
}

// Check validates solution against the scenario. Requirements are paired
// with validation rules by position; extra entries on either side are ignored.
func (c *Checker) Check(s *scenario.File, solution string) domain.ValidationResult {
	doc, syntaxErrs := syntax.Parse(solution)
	if len(syntaxErrs) > 0 {
		return domain.ValidationResult{
			Valid:        false,
			Score:        0,
			MaxScore:     s.MaxScore(),
			Results:      []domain.RequirementResult{},
			Feedback:     FeedbackSyntax,
			SyntaxErrors: syntaxErrs,
			Warnings:     []domain.Warning{},
		}
	}

	n := min(len(s.Requirements), len(s.ValidationRules))
	results := make([]domain.RequirementResult, 0, n)
	score, maxScore, allPassed := 0, 0, true
	for i := 0; i < n; i++ {
		r := c.evaluate(doc, s.Requirements[i], s.ValidationRules[i])
		results = append(results, r)
		score += r.PointsEarned
		maxScore += r.PointsPossible
		allPassed = allPassed && r.Passed
	}

	result := domain.ValidationResult{
		Valid:        allPassed,
		Score:        score,
		MaxScore:     maxScore,
		Results:      results,
		SyntaxErrors: []domain.SyntaxError{},
		Warnings:     append(structureWarnings(doc), contentWarnings(doc)...),
	}
	result.Feedback = feedback(&result, allPassed)
	return result
}

func (c *Checker) evaluate(doc map[string]any, req scenario.Requirement, rule scenario.Rule) domain.RequirementResult {
	result := domain.RequirementResult{
		RequirementID:  req.ID,
		PointsPossible: req.Points,
	}

	eval, ok := c.evaluators[rule.Type]
	if !ok {
		result.Message = fmt.Sprintf("Unknown rule type: %s", rule.Type)
		return result
	}

	passed, msg, err := eval(doc, req, rule.Config)
	if err != nil {
		c.logger.Error("rule evaluation failed", "rule", rule.Type, "requirement", req.ID, "error", err)
		result.Message = fmt.Sprintf("Validation error: %v", err)
		return result
	}

	result.Passed = passed
	result.Message = msg
	if passed {
		result.PointsEarned = req.Points
		if msg == "" {
			result.Message = req.Description
		}
	}
	return result
}

func feedback(r *domain.ValidationResult, allPassed bool) string {
	if allPassed {
		return FeedbackAllMet
	}
	passed, total := r.PassedCount(), len(r.Results)
	switch {
	case passed == 0:
		return FeedbackNoneMet
	case float64(passed) < float64(total)/2:
		return fmt.Sprintf(feedbackProgress, passed, total)
	default:
		return fmt.Sprintf(feedbackAlmost, passed, total)
	}
}

func structureWarnings(doc map[string]any) []domain.Warning {
	var warnings []domain.Warning
	if _, ok := doc["openapi"]; !ok {
		warnings = append(warnings, domain.Warning{Path: "openapi", Message: "Missing 'openapi' version field"})
	}
	if _, ok := doc["info"]; !ok {
		warnings = append(warnings, domain.Warning{Path: "info", Message: "Missing 'info' object"})
	}
	if _, ok := doc["paths"]; !ok {
		warnings = append(warnings, domain.Warning{Path: "paths", Message: "Missing 'paths' object"})
	}
	return warnings
}

func contentWarnings(doc map[string]any) []domain.Warning {
	info, ok := doc["info"]
	if !ok {
		return nil
	}
	if desc, _ := asMap(info)["description"].(string); desc == "" {
		return []domain.Warning{{Path: "info.description", Message: "Consider adding an API description"}}
	}
	return nil
}

func configString(cfg map[string]any, key string) (string, error) {
	v, ok := cfg[key]
	if !ok {
		return "", fmt.Errorf("missing config key %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config key %q must be a string", key)
	}
	return s, nil
}

// first resolves the path config key and returns the first match
func first(doc map[string]any, cfg map[string]any) (string, any, bool, error) {
	path, err := configString(cfg, "path")
	if err != nil {
		return "", nil, false, err
	}
	matches, err := findPath(doc, path)
	if err != nil {
		return path, nil, false, err
	}
	if len(matches) == 0 {
		return path, nil, false, nil
	}
	return path, matches[0], true, nil
}

func notFound(path string) string {
	return fmt.Sprintf("Path '%s' not found", path)
}

func evalExists(doc map[string]any, _ scenario.Requirement, cfg map[string]any) (bool, string, error) {
	path, _, found, err := first(doc, cfg)
	if err != nil {
		return false, "", err
	}
	if !found {
		return false, notFound(path), nil
	}
	return true, "", nil
}

func evalEquals(doc map[string]any, _ scenario.Requirement, cfg map[string]any) (bool, string, error) {
	expected, ok := cfg["value"]
	if !ok {
		return false, "", fmt.Errorf("missing config key %q", "value")
	}
	path, actual, found, err := first(doc, cfg)
	if err != nil {
		return false, "", err
	}
	if !found {
		return false, notFound(path), nil
	}
	if !valuesEqual(actual, expected) {
		return false, fmt.Sprintf("Expected '%v', got '%v'", expected, actual), nil
	}
	return true, "", nil
}

func evalContains(doc map[string]any, _ scenario.Requirement, cfg map[string]any) (bool, string, error) {
	required, ok := cfg["values"].([]any)
	if !ok {
		return false, "", fmt.Errorf("config key %q must be a list", "values")
	}
	path, actual, found, err := first(doc, cfg)
	if err != nil {
		return false, "", err
	}
	if !found {
		return false, notFound(path), nil
	}

	var present []any
	switch t := actual.(type) {
	case map[string]any:
		for k := range t {
			present = append(present, k)
		}
	case []any:
		present = t
	default:
		present = []any{t}
	}

	var missing []any
	for _, want := range required {
		if !containsValue(present, want) {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("Missing: %s", formatList(missing)), nil
	}
	return true, "", nil
}

func evalMatches(doc map[string]any, _ scenario.Requirement, cfg map[string]any) (bool, string, error) {
	pattern, err := configString(cfg, "pattern")
	if err != nil {
		return false, "", err
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return false, "", fmt.Errorf("compile pattern: %w", err)
	}
	path, actual, found, err := first(doc, cfg)
	if err != nil {
		return false, "", err
	}
	if !found {
		return false, notFound(path), nil
	}

	s := fmt.Sprint(actual)
	if !re.MatchString(s) {
		return false, fmt.Sprintf("Value '%s' doesn't match pattern", s), nil
	}
	return true, "", nil
}

func evalCustom(doc map[string]any, _ scenario.Requirement, cfg map[string]any) (bool, string, error) {
	name, err := configString(cfg, "validator")
	if err != nil {
		return false, "", err
	}
	fn, ok := customValidators[name]
	if !ok {
		return false, fmt.Sprintf("Unknown custom validator: %s", name), nil
	}
	return fn(doc, Args(asMap(cfg["args"])))
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func containsValue(list []any, want any) bool {
	for _, v := range list {
		if valuesEqual(v, want) {
			return true
		}
	}
	return false
}

func formatList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			parts[i] = "'" + s + "'"
		} else {
			parts[i] = fmt.Sprint(v)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
