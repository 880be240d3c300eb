// Package titles evaluates achievement title eligibility and migrates
// legacy title names to current branding.
package titles

// Canonical title names.
const (
	Recruit         = "Yip's Recruit"
	Voyager         = "Trellis Voyager"
	ConsistencyVine = "Consistency Vine"
	Archivist       = "Yip's Archivist"
	Master          = "Trellis Master"
	Arborist        = "Algorithm Arborist"
	Bloomer         = "Flash Bloomer"
	AncientRoot     = "Ancient Trellis Root"
	Celestial       = "Celestial Trellis"
)

// arboristProgressThreshold is the per-journey progress needed for
// Algorithm Arborist.
const arboristProgressThreshold = 5

// Stats holds the accumulated user stats that title thresholds are
// evaluated against.
type Stats struct {
	XP                      int
	Streak                  int
	ExercisesCompletedToday int
	NotesCount              int
	JourneyProgress         []int
}

// Eligible returns the titles currently earned by the given stats.
// Thresholds are cumulative: the result is meant to be unioned with
// previously unlocked titles, never to replace them.
func Eligible(s Stats) []string {
	earned := []string{Recruit}
	if s.XP >= 100 {
		earned = append(earned, Voyager)
	}
	if s.Streak >= 2 {
		earned = append(earned, ConsistencyVine)
	}
	if s.NotesCount >= 2 {
		earned = append(earned, Archivist)
	}
	if s.XP >= 500 {
		earned = append(earned, Master)
	}
	for _, p := range s.JourneyProgress {
		if p >= arboristProgressThreshold {
			earned = append(earned, Arborist)
			break
		}
	}
	if s.ExercisesCompletedToday >= 3 {
		earned = append(earned, Bloomer)
	}
	if s.Streak >= 7 {
		earned = append(earned, AncientRoot)
	}
	if s.XP >= 1000 {
		earned = append(earned, Celestial)
	}
	return earned
}

// Merge unions previously unlocked titles with newly eligible ones,
// preserving input order and dropping duplicates. Titles are never
// removed: a title once present in unlocked stays in the result.
func Merge(unlocked, eligible []string) []string {
	seen := make(map[string]bool, len(unlocked)+len(eligible))
	merged := make([]string, 0, len(unlocked)+len(eligible))
	for _, t := range unlocked {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range eligible {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	return merged
}
