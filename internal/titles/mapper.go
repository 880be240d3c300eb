package titles

// Mapper translates legacy title names to their current branding.
// The rename table is fixed at construction; applying the mapper is
// idempotent since no mapped value appears as a key.
type Mapper struct {
	renames map[string]string
}

// NewMapper creates a Mapper from the given rename table. The table is
// copied so callers cannot mutate it afterwards.
func NewMapper(renames map[string]string) *Mapper {
	m := make(map[string]string, len(renames))
	for old, current := range renames {
		m[old] = current
	}
	return &Mapper{renames: m}
}

// DefaultMapper returns a Mapper loaded with the legacy pre-rebrand
// title names.
func DefaultMapper() *Mapper {
	return NewMapper(map[string]string{
		"Bit Antroid's Apprentice": Recruit,
		"Code Crusader":            Voyager,
		"Loop Legend":              ConsistencyVine,
		"Motivator":                Archivist,
		"Byte Master":              Master,
		"Algorithm Architect":      Arborist,
		"Coddy Innovator":          Bloomer,
		"Code Oracle":              AncientRoot,
		"Quantum Coder":            Celestial,
	})
}

// Canonicalize maps a legacy title name to its current form. Names that
// are already current (or unknown) pass through unchanged.
func (m *Mapper) Canonicalize(name string) string {
	if current, ok := m.renames[name]; ok {
		return current
	}
	return name
}

// CanonicalizeAll maps every entry of the list, ensures the base title
// is present, and reports whether anything changed.
func (m *Mapper) CanonicalizeAll(names []string) ([]string, bool) {
	changed := false
	out := make([]string, 0, len(names)+1)
	seen := make(map[string]bool, len(names)+1)
	for _, n := range names {
		mapped := m.Canonicalize(n)
		if mapped != n {
			changed = true
		}
		if seen[mapped] {
			changed = true
			continue
		}
		seen[mapped] = true
		out = append(out, mapped)
	}
	if !seen[Recruit] {
		out = append(out, Recruit)
		changed = true
	}
	return out, changed
}
