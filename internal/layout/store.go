// Package layout holds per-character action bar layouts in two tiers:
// durable layouts that survive restarts and are authoritative for restore,
// and session layouts that only exist to give the sync engine a diff
// baseline within the current run.
package layout

import (
	"sort"

	"github.com/barkeepd/barkeep/pkg/bar"
)

// Tier names which storage tier a lookup was served from.
type Tier string

const (
	TierDurable Tier = "durable"
	TierSession Tier = "session"
)

type key struct {
	Spec  int
	Level int
}

// Store is owned by a single event loop and is deliberately lock-free. It
// performs no I/O; the daemon flushes it through the storage package when
// Dirty reports true.
type Store struct {
	character   string
	highestSeen int
	durable     map[key]*bar.Snapshot
	session     map[key]*bar.Snapshot
	dirty       bool
}

// NewStore creates an empty store for one character.
func NewStore(character string) *Store {
	return &Store{
		character: character,
		durable:   make(map[key]*bar.Snapshot),
		session:   make(map[key]*bar.Snapshot),
	}
}

// Character returns the owning character key.
func (st *Store) Character() string {
	return st.character
}

// Save writes a layout to both tiers. It refuses to store without a spec
// context or payload and reports whether anything was written.
func (st *Store) Save(level int, snap *bar.Snapshot, spec int) bool {
	if spec <= 0 || level <= 0 || snap == nil {
		return false
	}
	k := key{Spec: spec, Level: level}
	st.durable[k] = snap
	st.session[k] = snap.Clone()
	st.dirty = true
	return true
}

// SaveSession writes a layout to the session tier only. Session entries are
// never persisted, so this does not mark the store dirty.
func (st *Store) SaveSession(level int, snap *bar.Snapshot, spec int) bool {
	if spec <= 0 || level <= 0 || snap == nil {
		return false
	}
	st.session[key{Spec: spec, Level: level}] = snap
	return true
}

// Get returns the layout for (level, spec), preferring the durable tier.
func (st *Store) Get(level, spec int) (*bar.Snapshot, Tier, bool) {
	k := key{Spec: spec, Level: level}
	if snap, ok := st.durable[k]; ok {
		return snap, TierDurable, true
	}
	if snap, ok := st.session[k]; ok {
		return snap, TierSession, true
	}
	return nil, "", false
}

// Has reports whether either tier holds a layout for (level, spec).
func (st *Store) Has(level, spec int) bool {
	_, _, ok := st.Get(level, spec)
	return ok
}

// Master returns the durable layout at the highest seen level. The returned
// snapshot is the live master object: the sync engine mutates it in place.
func (st *Store) Master(spec int) (*bar.Snapshot, bool) {
	snap, ok := st.durable[key{Spec: spec, Level: st.highestSeen}]
	return snap, ok
}

// Session returns the session-tier snapshot for (level, spec), ignoring the
// durable tier. Diff baselines come from here: they describe what the bars
// looked like earlier this run.
func (st *Store) Session(level, spec int) (*bar.Snapshot, bool) {
	snap, ok := st.session[key{Spec: spec, Level: level}]
	return snap, ok
}

// Delete removes a durable layout. Session entries are left alone; they
// remain valid as "last seen bars" baselines even after the saved layout is
// discarded.
func (st *Store) Delete(level, spec int) bool {
	k := key{Spec: spec, Level: level}
	if _, ok := st.durable[k]; !ok {
		return false
	}
	delete(st.durable, k)
	st.dirty = true
	return true
}

// PruneBelow removes every durable layout with level < keepLevel for the
// given spec and returns how many were removed. The session tier is never
// pruned: its entries are transient diff baselines, not authoritative
// history.
func (st *Store) PruneBelow(keepLevel, spec int) int {
	removed := 0
	for k := range st.durable {
		if k.Spec == spec && k.Level < keepLevel {
			delete(st.durable, k)
			removed++
		}
	}
	if removed > 0 {
		st.dirty = true
	}
	return removed
}

// ClearAll wipes both tiers for a spec.
func (st *Store) ClearAll(spec int) {
	for k := range st.durable {
		if k.Spec == spec {
			delete(st.durable, k)
			st.dirty = true
		}
	}
	for k := range st.session {
		if k.Spec == spec {
			delete(st.session, k)
		}
	}
}

// SavedLevels enumerates durable levels for a spec in ascending order.
func (st *Store) SavedLevels(spec int) []int {
	var levels []int
	for k := range st.durable {
		if k.Spec == spec {
			levels = append(levels, k.Level)
		}
	}
	sort.Ints(levels)
	return levels
}

// Count returns the number of durable layouts for a spec.
func (st *Store) Count(spec int) int {
	n := 0
	for k := range st.durable {
		if k.Spec == spec {
			n++
		}
	}
	return n
}

// HighestSeen returns the highest level ever confirmed for this character.
func (st *Store) HighestSeen() int {
	return st.highestSeen
}

// ObserveLevel records a confirmed level observation and reports whether it
// raised the highest seen level. This is the only mutation path for the
// counter.
func (st *Store) ObserveLevel(level int) bool {
	if level <= st.highestSeen {
		return false
	}
	st.highestSeen = level
	st.dirty = true
	return true
}

// Dirty reports whether durable state changed since the last MarkSaved.
func (st *Store) Dirty() bool {
	return st.dirty
}

// MarkSaved clears the dirty flag after a successful flush.
func (st *Store) MarkSaved() {
	st.dirty = false
}

// EachDurable visits every durable layout, ordered by spec then level, for
// persistence and listing.
func (st *Store) EachDurable(fn func(spec, level int, snap *bar.Snapshot)) {
	keys := make([]key, 0, len(st.durable))
	for k := range st.durable {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Spec != keys[j].Spec {
			return keys[i].Spec < keys[j].Spec
		}
		return keys[i].Level < keys[j].Level
	})
	for _, k := range keys {
		fn(k.Spec, k.Level, st.durable[k])
	}
}

// LoadDurable injects a layout into the durable tier during hydration
// without marking the store dirty.
func (st *Store) LoadDurable(spec, level int, snap *bar.Snapshot) {
	if spec <= 0 || level <= 0 || snap == nil {
		return
	}
	st.durable[key{Spec: spec, Level: level}] = snap
}

// LoadHighestSeen injects the persisted counter during hydration.
func (st *Store) LoadHighestSeen(level int) {
	if level > st.highestSeen {
		st.highestSeen = level
	}
}
