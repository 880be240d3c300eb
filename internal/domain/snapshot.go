// Package domain contains core domain types for the Trellis progress server.
package domain

import (
	"time"

	"github.com/trellislearn/trellis-server/internal/journey"
)

// Snapshot is the full per-user progress document the reconciliation
// engine operates on. The flat CurrentCourse/CurrentSectionID/Progress
// fields mirror the cursor of one enrolled journey; keeping the two in
// sync is the engine's job.
type Snapshot struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`

	CurrentCourse    string `json:"currentCourse,omitempty"`
	CurrentSectionID int    `json:"currentSectionId"`
	Progress         int    `json:"progress"`

	XP                      int `json:"xp"`
	XPToday                 int `json:"xpToday"`
	ExercisesCompletedToday int `json:"exercisesCompletedToday"`
	FirstTrySolves          int `json:"firstTrySolves"`
	SummariesToday          int `json:"summariesToday"`
	SectionsMasteredToday   int `json:"sectionsMasteredToday"`

	Streak       int        `json:"streak"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	ActivityDays []string   `json:"activityDays"`

	NotesCount     int      `json:"notesCount"`
	UnlockedTitles []string `json:"unlockedTitles"`
	SelectedTitle  string   `json:"selectedTitle,omitempty"`

	Journeys []journey.Raw `json:"enrolledJourneys"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ResetDailyCounters zeroes every per-day counter. Called on the first
// reconciliation of each new calendar day.
func (s *Snapshot) ResetDailyCounters() {
	s.XPToday = 0
	s.ExercisesCompletedToday = 0
	s.FirstTrySolves = 0
	s.SummariesToday = 0
	s.SectionsMasteredToday = 0
}

// RecordActivityDay adds a day key to the activity history if absent.
func (s *Snapshot) RecordActivityDay(day string) {
	for _, d := range s.ActivityDays {
		if d == day {
			return
		}
	}
	s.ActivityDays = append(s.ActivityDays, day)
}

// HasActivityDay reports whether the given day key is recorded.
func (s *Snapshot) HasActivityDay(day string) bool {
	for _, d := range s.ActivityDays {
		if d == day {
			return true
		}
	}
	return false
}
