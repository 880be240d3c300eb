// Package journey models per-course progress records and the
// normalization rules that keep them consistent.
package journey

import (
	"strings"
	"time"
)

// Raw is a journey as loaded from storage or received from a client,
// before course IDs have been normalized. Normalize is the only way to
// turn Raw records into validated Journeys.
type Raw struct {
	CourseID         string    `json:"courseId"`
	CurrentSectionID int       `json:"currentSectionId"`
	MaxSectionID     int       `json:"maxSectionId"`
	Progress         int       `json:"progress"`
	LastAccessed     time.Time `json:"lastAccessed,omitzero"`
}

// Journey is a validated per-course progress record. Its CourseID is
// always lowercase and trimmed, CurrentSectionID >= 1 and
// MaxSectionID >= CurrentSectionID.
type Journey struct {
	CourseID         string    `json:"courseId"`
	CurrentSectionID int       `json:"currentSectionId"`
	MaxSectionID     int       `json:"maxSectionId"`
	Progress         int       `json:"progress"`
	LastAccessed     time.Time `json:"lastAccessed,omitzero"`
}

// NormalizeCourseID lowercases and trims a course identifier.
func NormalizeCourseID(courseID string) string {
	return strings.ToLower(strings.TrimSpace(courseID))
}

// Normalize validates a raw journey list: course IDs are lowercased and
// trimmed, later duplicates of the same normalized ID are dropped (first
// occurrence wins, input order preserved), and zero cursors are raised
// to their floors. The second return reports whether anything changed,
// so callers know the cleaned list needs to be persisted.
func Normalize(raw []Raw) ([]Journey, bool) {
	repairNeeded := false
	seen := make(map[string]bool, len(raw))
	journeys := make([]Journey, 0, len(raw))

	for _, r := range raw {
		id := NormalizeCourseID(r.CourseID)
		if id != r.CourseID {
			repairNeeded = true
		}
		if seen[id] {
			repairNeeded = true
			continue
		}
		seen[id] = true

		j := Journey{
			CourseID:         id,
			CurrentSectionID: r.CurrentSectionID,
			MaxSectionID:     r.MaxSectionID,
			Progress:         r.Progress,
			LastAccessed:     r.LastAccessed,
		}
		if j.CurrentSectionID < 1 {
			j.CurrentSectionID = 1
			repairNeeded = true
		}
		if j.MaxSectionID < j.CurrentSectionID {
			j.MaxSectionID = j.CurrentSectionID
			repairNeeded = true
		}
		if j.Progress < 0 {
			j.Progress = 0
			repairNeeded = true
		}
		journeys = append(journeys, j)
	}

	return journeys, repairNeeded
}

// AsRaw converts validated journeys back to the storage representation.
func AsRaw(journeys []Journey) []Raw {
	raw := make([]Raw, len(journeys))
	for i, j := range journeys {
		raw[i] = Raw(j)
	}
	return raw
}

// Find returns the index of the journey for the given course, or -1.
// The match is case-insensitive and whitespace-trimmed but otherwise
// exact: "java" never matches "javascript".
func Find(journeys []Journey, courseID string) int {
	target := NormalizeCourseID(courseID)
	if target == "" {
		return -1
	}
	for i := range journeys {
		if journeys[i].CourseID == target {
			return i
		}
	}
	return -1
}

// Patch describes a partial journey update. Nil fields are left as-is.
type Patch struct {
	CurrentSectionID *int
	Progress         *int
	LastAccessed     time.Time
}

// Upsert applies a patch to the journey for courseID, appending a new
// journey seeded with defaults (section 1, max 1, progress 0) when none
// exists. MaxSectionID only ever grows.
func Upsert(journeys []Journey, courseID string, patch Patch) []Journey {
	idx := Find(journeys, courseID)
	if idx < 0 {
		journeys = append(journeys, Journey{
			CourseID:         NormalizeCourseID(courseID),
			CurrentSectionID: 1,
			MaxSectionID:     1,
			Progress:         0,
		})
		idx = len(journeys) - 1
	}

	j := &journeys[idx]
	if patch.CurrentSectionID != nil {
		j.CurrentSectionID = *patch.CurrentSectionID
		if j.CurrentSectionID > j.MaxSectionID {
			j.MaxSectionID = j.CurrentSectionID
		}
	}
	if patch.Progress != nil {
		j.Progress = *patch.Progress
	}
	if !patch.LastAccessed.IsZero() {
		j.LastAccessed = patch.LastAccessed
	}
	return journeys
}
