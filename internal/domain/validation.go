package domain

// SyntaxError locates a YAML parse failure (1-based line and column)
type SyntaxError struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Warning is a non-blocking remark about a submitted document
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// RequirementResult is the outcome of checking a single requirement
type RequirementResult struct {
	RequirementID  string `json:"requirement_id"`
	Passed         bool   `json:"passed"`
	Message        string `json:"message"`
	PointsEarned   int    `json:"points_earned"`
	PointsPossible int    `json:"points_possible"`
}

// ValidationResult is the checker's verdict on a submitted solution.
// It lives only for the current session and is never persisted.
type ValidationResult struct {
	Valid        bool                `json:"valid"`
	Score        int                 `json:"score"`
	MaxScore     int                 `json:"max_score"`
	Results      []RequirementResult `json:"results"`
	Feedback     string              `json:"feedback"`
	SyntaxErrors []SyntaxError       `json:"syntax_errors"`
	Warnings     []Warning           `json:"warnings"`
}

// PassedCount returns how many requirements passed
func (r *ValidationResult) PassedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}
