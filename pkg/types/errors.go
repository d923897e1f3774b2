package types

import "errors"

// Validation errors shared across components.
var (
	ErrInvalidClassCode     = errors.New("class code must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidRole          = errors.New("invalid role: must be 'teacher' or 'student'")
	ErrInvalidStatus        = errors.New("invalid status: must be 'not_started', 'in_progress' or 'completed'")
	ErrInvalidUnderstanding = errors.New("understanding level must be between 1 and 5")
	ErrInvalidHintLevel     = errors.New("hint level must be between 1 and 3")
)
