package journey

import (
	"testing"
)

func TestNormalizeDeduplicates(t *testing.T) {
	raw := []Raw{
		{CourseID: "JS", CurrentSectionID: 3, MaxSectionID: 4, Progress: 2},
		{CourseID: "js", CurrentSectionID: 1, MaxSectionID: 1, Progress: 0},
		{CourseID: "Js ", CurrentSectionID: 2, MaxSectionID: 2, Progress: 1},
	}

	journeys, repairNeeded := Normalize(raw)

	if !repairNeeded {
		t.Error("Expected repairNeeded=true for mixed-case duplicates")
	}
	if len(journeys) != 1 {
		t.Fatalf("Expected 1 journey after dedup, got %d", len(journeys))
	}
	j := journeys[0]
	if j.CourseID != "js" {
		t.Errorf("Expected courseId %q, got %q", "js", j.CourseID)
	}
	// First occurrence wins.
	if j.CurrentSectionID != 3 || j.MaxSectionID != 4 || j.Progress != 2 {
		t.Errorf("Expected first entry's values retained, got %+v", j)
	}
}

func TestNormalizePreservesOrder(t *testing.T) {
	raw := []Raw{
		{CourseID: "python", CurrentSectionID: 1, MaxSectionID: 1},
		{CourseID: "HTML", CurrentSectionID: 2, MaxSectionID: 2},
		{CourseID: "python", CurrentSectionID: 5, MaxSectionID: 5},
		{CourseID: "css", CurrentSectionID: 1, MaxSectionID: 1},
	}

	journeys, _ := Normalize(raw)

	want := []string{"python", "html", "css"}
	if len(journeys) != len(want) {
		t.Fatalf("Expected %d journeys, got %d", len(want), len(journeys))
	}
	for i, id := range want {
		if journeys[i].CourseID != id {
			t.Errorf("journeys[%d].CourseID = %q, want %q", i, journeys[i].CourseID, id)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := []Raw{
		{CourseID: " Java", CurrentSectionID: 2, MaxSectionID: 3, Progress: 1},
		{CourseID: "javascript", CurrentSectionID: 1, MaxSectionID: 1},
		{CourseID: "JAVA", CurrentSectionID: 9, MaxSectionID: 9},
	}

	once, _ := Normalize(raw)
	twice, repairNeeded := Normalize(AsRaw(once))

	if repairNeeded {
		t.Error("Expected repairNeeded=false on second normalization")
	}
	if len(twice) != len(once) {
		t.Fatalf("Expected stable length, got %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("journeys[%d] changed on renormalization: %+v != %+v", i, once[i], twice[i])
		}
	}
}

func TestNormalizeRaisesInvalidCursors(t *testing.T) {
	journeys, repairNeeded := Normalize([]Raw{
		{CourseID: "go", CurrentSectionID: 0, MaxSectionID: 0, Progress: -3},
	})

	j := journeys[0]
	if j.CurrentSectionID != 1 || j.MaxSectionID != 1 || j.Progress != 0 {
		t.Errorf("Expected cursors raised to floors, got %+v", j)
	}
	if !repairNeeded {
		t.Error("Expected repairNeeded=true when cursors are raised to floors")
	}
}

func TestNormalizeFloorRepairsReported(t *testing.T) {
	// Each floor repair on its own must mark the list as changed, even
	// when the course ID is already clean.
	cases := []struct {
		name string
		raw  Raw
	}{
		{"section below 1", Raw{CourseID: "go", CurrentSectionID: 0, MaxSectionID: 2, Progress: 0}},
		{"max below section", Raw{CourseID: "go", CurrentSectionID: 3, MaxSectionID: 1, Progress: 0}},
		{"negative progress", Raw{CourseID: "go", CurrentSectionID: 1, MaxSectionID: 1, Progress: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, repairNeeded := Normalize([]Raw{tc.raw})
			if !repairNeeded {
				t.Errorf("Normalize(%+v) reported no repair", tc.raw)
			}
		})
	}
}

func TestFindExactMatchOnly(t *testing.T) {
	journeys, _ := Normalize([]Raw{
		{CourseID: "javascript", CurrentSectionID: 2, MaxSectionID: 2},
	})

	// Past bug: "java" must not prefix-match "javascript".
	if idx := Find(journeys, "java"); idx != -1 {
		t.Errorf("Find(%q) matched %q, want no match", "java", journeys[idx].CourseID)
	}
	if idx := Find(journeys, "JavaScript "); idx != 0 {
		t.Errorf("Find with case/whitespace variance = %d, want 0", idx)
	}
	if idx := Find(journeys, ""); idx != -1 {
		t.Errorf("Find with empty course = %d, want -1", idx)
	}
}

func TestUpsertCreatesWithDefaults(t *testing.T) {
	journeys := Upsert(nil, "Python", Patch{})

	if len(journeys) != 1 {
		t.Fatalf("Expected 1 journey, got %d", len(journeys))
	}
	j := journeys[0]
	if j.CourseID != "python" || j.CurrentSectionID != 1 || j.MaxSectionID != 1 || j.Progress != 0 {
		t.Errorf("Expected seeded defaults, got %+v", j)
	}
}

func TestUpsertPatchesExisting(t *testing.T) {
	journeys, _ := Normalize([]Raw{
		{CourseID: "go", CurrentSectionID: 2, MaxSectionID: 4, Progress: 3},
	})

	section := 3
	progress := 1
	journeys = Upsert(journeys, "go", Patch{CurrentSectionID: &section, Progress: &progress})

	j := journeys[0]
	if j.CurrentSectionID != 3 || j.Progress != 1 {
		t.Errorf("Expected patched cursor, got %+v", j)
	}
	if j.MaxSectionID != 4 {
		t.Errorf("Expected max section unchanged at 4, got %d", j.MaxSectionID)
	}
}

func TestUpsertGrowsMaxSection(t *testing.T) {
	journeys, _ := Normalize([]Raw{
		{CourseID: "go", CurrentSectionID: 2, MaxSectionID: 2},
	})

	section := 5
	journeys = Upsert(journeys, "go", Patch{CurrentSectionID: &section})

	if journeys[0].MaxSectionID != 5 {
		t.Errorf("Expected max section raised to 5, got %d", journeys[0].MaxSectionID)
	}
}
