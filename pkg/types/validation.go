package types

import "regexp"

// Compiled once; class codes are validated on every relay handshake.
var classCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidClassCode checks the broadcast partition key format.
// 1-50 characters keeps codes typeable on a classroom projector.
func IsValidClassCode(code string) bool {
	if len(code) < 1 || len(code) > 50 {
		return false
	}
	return classCodeRegex.MatchString(code)
}

// IsValidRole accepts the two known roles plus the empty string,
// because role is optional at connection time.
func IsValidRole(role string) bool {
	switch role {
	case "", RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// IsValidStatus checks a progress status value.
func IsValidStatus(status string) bool {
	switch status {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsValidUnderstanding checks the self-reported understanding scale.
func IsValidUnderstanding(level int) bool {
	return level >= 1 && level <= 5
}

// IsValidHintLevel checks the staged hint level.
func IsValidHintLevel(level int) bool {
	return level >= 1 && level <= 3
}

// Validate checks the fields a progress row needs before persistence.
func (p *StudentProgress) Validate() error {
	if !IsValidStatus(p.Status) {
		return ErrInvalidStatus
	}
	if p.UnderstandingLevel != 0 && !IsValidUnderstanding(p.UnderstandingLevel) {
		return ErrInvalidUnderstanding
	}
	return nil
}

// Validate checks a hint before persistence.
func (h *Hint) Validate() error {
	if !IsValidHintLevel(h.Level) {
		return ErrInvalidHintLevel
	}
	return nil
}
