package game

import (
	"fmt"
	"strings"
)

// SimLogEntry is one recorded world event.
type SimLogEntry struct {
	Tick     int
	Entity   string  // label e.g. "rifle-0", or "--" for global events
	Faction  int     // -1 for global events
	Category string  // move, slot, combat, damage, dot, death, projectile
	Key      string  // specific event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] rifle-0    combat    attack_executed  tower-1 -10.0
func (e SimLogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-10s %-9s %-16s %s",
		e.Tick, e.Entity, e.Category, e.Key, e.Value)
}

// SimLog collects structured events during a simulation.
// Unlike MessageLog (player ring-buffer), SimLog is unbounded and machine-readable.
type SimLog struct {
	entries []SimLogEntry
	verbose bool
}

// NewSimLog creates a SimLog. If verbose is true, per-tick position entries
// are also recorded.
func NewSimLog(verbose bool) *SimLog {
	return &SimLog{verbose: verbose}
}

// Add records a new entry.
func (sl *SimLog) Add(tick int, entity string, faction int, category, key, value string, numVal float64) {
	sl.entries = append(sl.entries, SimLogEntry{
		Tick:     tick,
		Entity:   entity,
		Faction:  faction,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (sl *SimLog) AddVerbose(tick int, entity string, faction int, category, key, value string, numVal float64) {
	if !sl.verbose {
		return
	}
	sl.Add(tick, entity, faction, category, key, value, numVal)
}

// Entries returns all recorded entries.
func (sl *SimLog) Entries() []SimLogEntry {
	return sl.entries
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (sl *SimLog) Filter(category, key string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterEntity returns entries for a specific entity label.
func (sl *SimLog) FilterEntity(label string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Entity == label {
			out = append(out, e)
		}
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick] inclusive.
func (sl *SimLog) FilterTickRange(fromTick, toTick int) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (sl *SimLog) CountCategory(category, key string) int {
	return len(sl.Filter(category, key))
}

// FirstOf returns the earliest entry matching category+key, or false if none.
func (sl *SimLog) FirstOf(category, key string) (SimLogEntry, bool) {
	for _, e := range sl.entries {
		if e.Category == category && (key == "" || e.Key == key) {
			return e, true
		}
	}
	return SimLogEntry{}, false
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (sl *SimLog) LastOf(category, key string) (SimLogEntry, bool) {
	entries := sl.Filter(category, key)
	if len(entries) == 0 {
		return SimLogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (sl *SimLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (sl *SimLog) Format() string {
	var sb strings.Builder
	for _, e := range sl.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatRange returns a log string filtered to a tick range.
func (sl *SimLog) FormatRange(fromTick, toTick int) string {
	var sb strings.Builder
	for _, e := range sl.FilterTickRange(fromTick, toTick) {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary returns a short human-readable summary of the world state.
func (sl *SimLog) Summary(tick int, agents []*Agent, structures []*Structure) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Summary at T=%03d ---\n", tick)

	alive := map[int]int{}
	total := map[int]int{}
	var factions []int
	note := func(f int, ok bool) {
		if _, seen := total[f]; !seen {
			factions = append(factions, f)
		}
		total[f]++
		if ok {
			alive[f]++
		}
	}
	for _, a := range agents {
		note(a.Faction(), a.IsAlive())
	}
	for _, s := range structures {
		note(s.Faction(), s.IsAlive())
	}
	for _, f := range factions {
		fmt.Fprintf(&sb, "Faction %d alive: %d/%d\n", f, alive[f], total[f])
	}

	engaged := 0
	for _, a := range agents {
		if st := a.Attack(); st != nil && st.Target() != nil {
			fmt.Fprintf(&sb, "Target: %s → %s (%s)\n", a.Label(), st.Target().Label(), st.State())
			engaged++
		}
	}
	if engaged == 0 {
		sb.WriteString("Targets: none\n")
	}
	fmt.Fprintf(&sb, "Hits: %d  Kills: %d\n", sl.CountCategory("damage", ""), sl.CountCategory("death", ""))
	return sb.String()
}
