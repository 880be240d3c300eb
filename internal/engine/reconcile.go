package engine

import (
	"log/slog"
	"time"

	"github.com/trellislearn/trellis-server/internal/calendar"
	"github.com/trellislearn/trellis-server/internal/domain"
	"github.com/trellislearn/trellis-server/internal/journey"
	"github.com/trellislearn/trellis-server/internal/titles"
)

// XP grants.
const (
	sectionCompletionXP = 100
	firstTryBonusXP     = 10
)

// reconcile applies the full pipeline to one snapshot in memory. The
// delta is nil for plain fetch-and-reconcile requests. Returns the
// titles newly unlocked by this reconciliation.
func (e *Engine) reconcile(snap *domain.Snapshot, now time.Time, delta *domain.Delta) []string {
	e.rollover(snap, now)
	e.canonicalizeTitles(snap)

	journeys, repaired := journey.Normalize(snap.Journeys)
	if repaired {
		slog.Info("Repaired journey list", "user_id", snap.UserID, "journeys", len(journeys))
	}

	journeys = e.syncActiveCursor(snap, journeys)

	if delta != nil {
		journeys = e.applyDelta(snap, journeys, *delta, now)
	}

	newTitles := e.refreshTitles(snap, journeys)
	e.backfillActivityDays(snap, now)

	snap.Journeys = journey.AsRaw(journeys)
	return newTitles
}

// rollover applies the daily streak and counter transition, records the
// current day in the activity history and stamps the activity time.
func (e *Engine) rollover(snap *domain.Snapshot, now time.Time) {
	switch {
	case snap.LastActivity == nil:
		// First-ever activity.
		snap.Streak = 1
		snap.ResetDailyCounters()
	case calendar.IsSameDay(*snap.LastActivity, now):
		// Still the same day; nothing to reset.
	case calendar.IsConsecutiveDay(*snap.LastActivity, now):
		snap.ResetDailyCounters()
		snap.Streak++
	default:
		// Gap of more than one day: streak broken.
		snap.ResetDailyCounters()
		snap.Streak = 1
	}

	snap.RecordActivityDay(calendar.DayKey(now))
	ts := now
	snap.LastActivity = &ts
}

// canonicalizeTitles migrates legacy title names on the stored set and
// the selected title, and guarantees the base title is present.
func (e *Engine) canonicalizeTitles(snap *domain.Snapshot) {
	snap.UnlockedTitles, _ = e.mapper.CanonicalizeAll(snap.UnlockedTitles)
	if snap.SelectedTitle != "" {
		snap.SelectedTitle = e.mapper.Canonicalize(snap.SelectedTitle)
	}
}

// syncActiveCursor reconciles the flat active-course cursor against its
// journey. At most one direction applies: whichever side records more
// progress wins, regardless of timestamps.
func (e *Engine) syncActiveCursor(snap *domain.Snapshot, journeys []journey.Journey) []journey.Journey {
	if snap.CurrentCourse == "" {
		return journeys
	}
	idx := journey.Find(journeys, snap.CurrentCourse)
	if idx < 0 {
		return journeys
	}

	j := &journeys[idx]
	flatSection := snap.CurrentSectionID
	if flatSection < 1 {
		flatSection = 1
	}
	flatProgress := snap.Progress

	switch {
	case j.MaxSectionID > flatSection || (j.CurrentSectionID == flatSection && j.Progress > flatProgress):
		// Journey is ahead: another session recorded more progress.
		snap.CurrentSectionID = j.CurrentSectionID
		snap.Progress = j.Progress
		slog.Info("Recovered flat cursor from journey",
			"user_id", snap.UserID,
			"course", j.CourseID,
			"section", j.CurrentSectionID,
			"progress", j.Progress)
	case flatSection > j.CurrentSectionID || (flatSection == j.CurrentSectionID && flatProgress > j.Progress):
		// Flat cursor is ahead: push it into the journey record.
		j.CurrentSectionID = flatSection
		j.Progress = flatProgress
		if flatSection > j.MaxSectionID {
			j.MaxSectionID = flatSection
		}
		slog.Info("Pushed flat cursor into journey",
			"user_id", snap.UserID,
			"course", j.CourseID,
			"section", flatSection,
			"progress", flatProgress)
	}

	return journeys
}

// applyDelta applies the incoming progress delta. Section completion and
// plain progress updates are mutually exclusive; XP adjustments compose
// with either.
func (e *Engine) applyDelta(snap *domain.Snapshot, journeys []journey.Journey, delta domain.Delta, now time.Time) []journey.Journey {
	switch {
	case delta.CompleteSection && delta.HasCourse():
		journeys = e.completeSection(snap, journeys, delta.CurrentCourse, now)
	case delta.HasCourse():
		journeys = e.updateProgress(snap, journeys, delta, now)
	}

	if delta.XPIncrement > 0 {
		snap.XP += delta.XPIncrement
		snap.XPToday += delta.XPIncrement
		snap.ExercisesCompletedToday++
	}
	if delta.IsFirstTry {
		snap.FirstTrySolves++
		snap.XP += firstTryBonusXP
		snap.XPToday += firstTryBonusXP
	}

	return journeys
}

func (e *Engine) completeSection(snap *domain.Snapshot, journeys []journey.Journey, courseID string, now time.Time) []journey.Journey {
	idx := journey.Find(journeys, courseID)
	if idx < 0 {
		slog.Warn("Section completion for unknown journey ignored",
			"user_id", snap.UserID, "course", courseID)
		return journeys
	}

	j := &journeys[idx]
	next := j.CurrentSectionID + 1
	if next > j.MaxSectionID {
		j.MaxSectionID = next
	}
	j.CurrentSectionID = next
	j.Progress = 0
	j.LastAccessed = now

	snap.XP += sectionCompletionXP
	snap.XPToday += sectionCompletionXP
	snap.SectionsMasteredToday++

	snap.CurrentCourse = j.CourseID
	snap.CurrentSectionID = next
	snap.Progress = 0

	slog.Info("Section completed",
		"user_id", snap.UserID,
		"course", j.CourseID,
		"next_section", next)
	return journeys
}

func (e *Engine) updateProgress(snap *domain.Snapshot, journeys []journey.Journey, delta domain.Delta, now time.Time) []journey.Journey {
	idx := journey.Find(journeys, delta.CurrentCourse)
	if idx < 0 {
		// First interaction with this course: enroll with defaults.
		journeys = journey.Upsert(journeys, delta.CurrentCourse, journey.Patch{LastAccessed: now})
		snap.CurrentCourse = journey.NormalizeCourseID(delta.CurrentCourse)
		snap.CurrentSectionID = 1
		snap.Progress = 0
		slog.Info("Enrolled new journey", "user_id", snap.UserID, "course", snap.CurrentCourse)
		return journeys
	}

	j := &journeys[idx]
	section := j.CurrentSectionID
	if delta.CurrentSectionID != nil {
		section = *delta.CurrentSectionID
	}
	progress := j.Progress
	if delta.Progress != nil {
		progress = *delta.Progress
	}

	j.CurrentSectionID = section
	j.Progress = progress
	if section > j.MaxSectionID {
		j.MaxSectionID = section
	}
	j.LastAccessed = now

	snap.CurrentCourse = j.CourseID
	snap.CurrentSectionID = section
	snap.Progress = progress
	return journeys
}

// refreshTitles recomputes eligibility from the final stats and unions
// the result into the unlocked set. Returns titles not previously held.
func (e *Engine) refreshTitles(snap *domain.Snapshot, journeys []journey.Journey) []string {
	progresses := make([]int, len(journeys))
	for i := range journeys {
		progresses[i] = journeys[i].Progress
	}

	eligible := titles.Eligible(titles.Stats{
		XP:                      snap.XP,
		Streak:                  snap.Streak,
		ExercisesCompletedToday: snap.ExercisesCompletedToday,
		NotesCount:              snap.NotesCount,
		JourneyProgress:         progresses,
	})

	held := make(map[string]bool, len(snap.UnlockedTitles))
	for _, t := range snap.UnlockedTitles {
		held[t] = true
	}

	merged := titles.Merge(snap.UnlockedTitles, eligible)

	var newTitles []string
	for _, t := range merged {
		if !held[t] {
			newTitles = append(newTitles, t)
		}
	}
	if len(newTitles) > 0 {
		slog.Info("Titles unlocked", "user_id", snap.UserID, "titles", newTitles)
	}

	snap.UnlockedTitles = merged
	return newTitles
}

// backfillActivityDays repairs activity-day history shorter than the
// claimed streak. Best effort only; capped so ancient streaks do not
// flood the document.
func (e *Engine) backfillActivityDays(snap *domain.Snapshot, now time.Time) {
	if len(snap.ActivityDays) >= snap.Streak {
		return
	}
	for _, day := range calendar.BackfillDays(now, snap.Streak, calendar.DefaultBackfillCap) {
		snap.RecordActivityDay(day)
	}
}
