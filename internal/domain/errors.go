package domain

import "errors"

// Scenario errors
var (
	ErrScenarioNotFound = errors.New("scenario not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
