package domain

import (
	"strings"
	"time"

	"github.com/smallbiznis/sprintboard/pkg/apperr"
)

var (
	ErrInvalidTarget     = apperr.Validation("status", "invalid_sprint_status", "sprint status must be ACTIVE or COMPLETED")
	ErrOutsideWindow     = apperr.InvalidState("sprint_outside_window", "cannot start a sprint outside of its date range")
	ErrNotActive         = apperr.InvalidState("sprint_not_active", "only an active sprint can be completed")
	ErrIllegalTransition = apperr.InvalidState("sprint_illegal_transition", "sprint status can only move forward from PLANNED to ACTIVE to COMPLETED")
)

// NormalizeStatus upper-cases a requested status.
func NormalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// Transition checks a status change of s to target at now. The window
// for activation is inclusive on both ends.
func (s Sprint) Transition(target string, now time.Time) error {
	switch NormalizeStatus(target) {
	case StatusActive:
		if s.Status != StatusPlanned {
			return ErrIllegalTransition
		}
		if now.Before(s.StartDate) || now.After(s.EndDate) {
			return ErrOutsideWindow
		}
		return nil
	case StatusCompleted:
		if s.Status != StatusActive {
			return ErrNotActive
		}
		return nil
	default:
		return ErrInvalidTarget
	}
}

// Reorderable reports whether issues of the sprint may be re-ranked.
func (s Sprint) Reorderable() bool {
	return s.Status == StatusActive
}
