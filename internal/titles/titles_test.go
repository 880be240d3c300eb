package titles

import (
	"reflect"
	"testing"
)

func TestEligibleBaseline(t *testing.T) {
	earned := Eligible(Stats{})
	if !reflect.DeepEqual(earned, []string{Recruit}) {
		t.Errorf("Expected new user to earn only %q, got %v", Recruit, earned)
	}
}

func TestEligibleThresholds(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  []string
	}{
		{
			"xp 100 grants voyager",
			Stats{XP: 100},
			[]string{Recruit, Voyager},
		},
		{
			"streak 2 grants consistency vine",
			Stats{Streak: 2},
			[]string{Recruit, ConsistencyVine},
		},
		{
			"two notes grant archivist",
			Stats{NotesCount: 2},
			[]string{Recruit, Archivist},
		},
		{
			"xp 500 grants master too",
			Stats{XP: 500},
			[]string{Recruit, Voyager, Master},
		},
		{
			"journey progress 5 grants arborist",
			Stats{JourneyProgress: []int{0, 5}},
			[]string{Recruit, Arborist},
		},
		{
			"three exercises grant bloomer",
			Stats{ExercisesCompletedToday: 3},
			[]string{Recruit, Bloomer},
		},
		{
			"streak 7 grants ancient root",
			Stats{Streak: 7},
			[]string{Recruit, ConsistencyVine, AncientRoot},
		},
		{
			"xp 1000 grants celestial",
			Stats{XP: 1000},
			[]string{Recruit, Voyager, Master, Celestial},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Eligible(tt.stats)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Eligible(%+v) = %v, want %v", tt.stats, got, tt.want)
			}
		})
	}
}

func TestMergeIsUnionOnly(t *testing.T) {
	// A previously earned title must survive even if current stats no
	// longer meet its threshold.
	unlocked := []string{Recruit, Voyager}
	eligible := Eligible(Stats{XP: 0})

	merged := Merge(unlocked, eligible)

	found := false
	for _, title := range merged {
		if title == Voyager {
			found = true
		}
	}
	if !found {
		t.Errorf("Merge dropped previously unlocked %q: %v", Voyager, merged)
	}
}

func TestMergeDeduplicates(t *testing.T) {
	merged := Merge([]string{Recruit, Voyager}, []string{Recruit, Voyager, Master})
	want := []string{Recruit, Voyager, Master}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("Merge = %v, want %v", merged, want)
	}
}

func TestCanonicalize(t *testing.T) {
	m := DefaultMapper()

	tests := []struct {
		in, want string
	}{
		{"Bit Antroid's Apprentice", Recruit},
		{"Code Crusader", Voyager},
		{"Quantum Coder", Celestial},
		{Voyager, Voyager},
		{"Unknown Title", "Unknown Title"},
	}

	for _, tt := range tests {
		if got := m.Canonicalize(tt.in); got != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	m := DefaultMapper()
	for _, legacy := range []string{"Byte Master", "Loop Legend", Recruit} {
		once := m.Canonicalize(legacy)
		twice := m.Canonicalize(once)
		if once != twice {
			t.Errorf("Canonicalize not idempotent for %q: %q then %q", legacy, once, twice)
		}
	}
}

func TestCanonicalizeAll(t *testing.T) {
	m := DefaultMapper()

	t.Run("maps and reports change", func(t *testing.T) {
		out, changed := m.CanonicalizeAll([]string{"Code Crusader", Master})
		if !changed {
			t.Error("Expected changed=true when a legacy name is mapped")
		}
		want := []string{Voyager, Master, Recruit}
		if !reflect.DeepEqual(out, want) {
			t.Errorf("CanonicalizeAll = %v, want %v", out, want)
		}
	})

	t.Run("adds missing base title", func(t *testing.T) {
		out, changed := m.CanonicalizeAll([]string{Voyager})
		if !changed {
			t.Error("Expected changed=true when base title is added")
		}
		if out[len(out)-1] != Recruit {
			t.Errorf("Expected %q appended, got %v", Recruit, out)
		}
	})

	t.Run("clean list unchanged", func(t *testing.T) {
		in := []string{Recruit, Voyager}
		out, changed := m.CanonicalizeAll(in)
		if changed {
			t.Errorf("Expected changed=false for clean list, got %v", out)
		}
	})

	t.Run("collapses duplicates after mapping", func(t *testing.T) {
		out, changed := m.CanonicalizeAll([]string{"Code Crusader", Voyager, Recruit})
		if !changed {
			t.Error("Expected changed=true when duplicates collapse")
		}
		want := []string{Voyager, Recruit}
		if !reflect.DeepEqual(out, want) {
			t.Errorf("CanonicalizeAll = %v, want %v", out, want)
		}
	})
}
