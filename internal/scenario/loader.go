// Package scenario loads practice scenarios from YAML files and serves
// them from an in-memory registry.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/syntax"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Rule defines how a requirement is checked
type Rule struct {
	Type   string         `yaml:"type" validate:"required"`
	Config map[string]any `yaml:"config" validate:"required"`
}

// Requirement as written in a scenario file
type Requirement struct {
	ID          string `yaml:"id" validate:"required"`
	Description string `yaml:"description" validate:"required"`
	Hint        string `yaml:"hint"`
	Points      int    `yaml:"points" validate:"gte=0"`
}

// File represents the YAML structure of a scenario
type File struct {
	ID               string            `yaml:"id" validate:"required,slug"`
	Title            string            `yaml:"title" validate:"required,min=5,max=100"`
	Description      string            `yaml:"description" validate:"required,min=10,max=500"`
	Topics           []domain.Topic    `yaml:"topics" validate:"required,min=1,dive,topic"`
	Difficulty       domain.Difficulty `yaml:"difficulty" validate:"required,difficulty"`
	EstimatedMinutes int               `yaml:"estimated_minutes" validate:"gte=1,lte=60"`
	Points           int               `yaml:"points" validate:"gte=1,lte=100"`
	Instructions     string            `yaml:"instructions" validate:"required"`
	Requirements     []Requirement     `yaml:"requirements" validate:"required,min=1,dive"`
	ValidationRules  []Rule            `yaml:"validation_rules" validate:"required,min=1,dive"`
	StarterCode      string            `yaml:"starter_code" validate:"required"`
	ExampleSolution  string            `yaml:"example_solution"`
}

// Summary returns the listing view
func (f *File) Summary() domain.ScenarioSummary {
	return domain.ScenarioSummary{
		ID:               f.ID,
		Title:            f.Title,
		Description:      f.Description,
		Topics:           append([]domain.Topic(nil), f.Topics...),
		Difficulty:       f.Difficulty,
		EstimatedMinutes: f.EstimatedMinutes,
		Points:           f.Points,
	}
}

// Detail returns the practice view. The example solution is never included.
func (f *File) Detail() domain.ScenarioDetail {
	reqs := make([]domain.Requirement, len(f.Requirements))
	for i, r := range f.Requirements {
		reqs[i] = domain.Requirement{
			ID:          r.ID,
			Description: r.Description,
			Hint:        r.Hint,
			Points:      r.Points,
		}
	}
	return domain.ScenarioDetail{
		ScenarioSummary: f.Summary(),
		Instructions:    f.Instructions,
		Requirements:    reqs,
		StarterCode:     f.StarterCode,
	}
}

// MaxScore is the sum of all requirement points
func (f *File) MaxScore() int {
	total := 0
	for _, r := range f.Requirements {
		total += r.Points
	}
	return total
}

// Loader reads scenario files from a directory
type Loader struct {
	basePath string
	validate *validator.Validate
}

// NewLoader creates a loader for basePath
func NewLoader(basePath string) *Loader {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("topic", func(fl validator.FieldLevel) bool {
		return domain.Topic(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return domain.Difficulty(fl.Field().String()).Valid()
	})
	return &Loader{basePath: basePath, validate: v}
}

// BasePath returns the scenarios directory
func (l *Loader) BasePath() string {
	return l.basePath
}

// LoadFile reads and validates a single scenario file
func (l *Loader) LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes and validates scenario YAML
func (l *Loader) Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}

	if err := l.validate.Struct(&f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("%w: field %s failed %q", domain.ErrInvalidInput, fe.Namespace(), fe.Tag())
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	for i := range f.Requirements {
		if f.Requirements[i].Points == 0 {
			f.Requirements[i].Points = 1
		}
	}
	for i := range f.ValidationRules {
		if cfg, ok := syntax.Normalize(f.ValidationRules[i].Config).(map[string]any); ok {
			f.ValidationRules[i].Config = cfg
		}
	}
	return &f, nil
}

// LoadError reports a file that could not be loaded
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadAll loads every *.yaml file in the base directory. Files that fail
// are reported in the second return value and skipped. A missing directory
// yields no scenarios.
func (l *Loader) LoadAll() ([]*File, []*LoadError, error) {
	matches, err := filepath.Glob(filepath.Join(l.basePath, "*.yaml"))
	if err != nil {
		return nil, nil, fmt.Errorf("glob scenarios: %w", err)
	}
	sort.Strings(matches)

	var (
		files []*File
		fails []*LoadError
		seen  = make(map[string]string)
	)
	for _, path := range matches {
		f, err := l.LoadFile(path)
		if err != nil {
			fails = append(fails, &LoadError{Path: path, Err: err})
			continue
		}
		if prev, dup := seen[f.ID]; dup {
			fails = append(fails, &LoadError{Path: path, Err: fmt.Errorf("%w: duplicate id %q (also in %s)", domain.ErrInvalidInput, f.ID, prev)})
			continue
		}
		seen[f.ID] = path
		files = append(files, f)
	}

	return files, fails, nil
}
