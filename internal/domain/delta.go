package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDelta marks a progress delta rejected before any state
// mutation.
var ErrInvalidDelta = errors.New("invalid progress delta")

// Delta is one client-submitted progress update. CurrentSectionID and
// Progress are pointers so a zero value can be told apart from an absent
// field. XPIncrement and IsFirstTry compose with the course fields; a
// request may carry both.
type Delta struct {
	CurrentCourse    string `json:"currentCourse,omitempty"`
	CurrentSectionID *int   `json:"currentSectionId,omitempty"`
	Progress         *int   `json:"progress,omitempty"`
	XPIncrement      int    `json:"xpIncrement,omitempty"`
	IsFirstTry       bool   `json:"isFirstTry,omitempty"`
	CompleteSection  bool   `json:"completeSection,omitempty"`
}

// HasCourse reports whether the delta names a course.
func (d Delta) HasCourse() bool {
	return strings.TrimSpace(d.CurrentCourse) != ""
}

// Validate rejects malformed deltas. Validation runs before any state is
// touched so a rejected request never leaves a partial write behind.
func (d Delta) Validate() error {
	if d.CurrentCourse != "" && !d.HasCourse() {
		return fmt.Errorf("%w: blank currentCourse", ErrInvalidDelta)
	}
	if d.CurrentSectionID != nil && *d.CurrentSectionID < 1 {
		return fmt.Errorf("%w: currentSectionId must be >= 1", ErrInvalidDelta)
	}
	if d.Progress != nil && *d.Progress < 0 {
		return fmt.Errorf("%w: progress must be >= 0", ErrInvalidDelta)
	}
	if d.XPIncrement < 0 {
		return fmt.Errorf("%w: xpIncrement must be >= 0", ErrInvalidDelta)
	}
	if d.CompleteSection && !d.HasCourse() {
		return fmt.Errorf("%w: completeSection requires currentCourse", ErrInvalidDelta)
	}
	return nil
}
