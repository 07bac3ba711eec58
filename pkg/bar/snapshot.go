package bar

import (
	"sort"
	"time"
)

// Snapshot is one observation of the action bar: the occupant of every
// enabled slot at a moment in time. Slots outside the enabled set are absent
// from the map, which is not the same as holding an explicit Empty entry.
// A snapshot is never mutated after capture; the sync engine clones before
// editing.
type Snapshot struct {
	Taken      time.Time          `json:"taken"`
	Level      int                `json:"level"`
	Slots      map[int]Descriptor `json:"slots"`
	Configured int                `json:"configured"` // enabled slots at capture time
	Captured   int                `json:"captured"`   // entries actually recorded
}

// NewSnapshot creates an empty snapshot for the given level, stamped now.
func NewSnapshot(level int) *Snapshot {
	return &Snapshot{
		Taken: time.Now(),
		Level: level,
		Slots: make(map[int]Descriptor),
	}
}

// Set records the occupant of a slot and keeps the counters current.
func (s *Snapshot) Set(slot int, d Descriptor) {
	if _, seen := s.Slots[slot]; !seen {
		s.Captured++
	}
	s.Slots[slot] = d
}

// Get returns the recorded descriptor and whether the slot was captured at
// all. An uncaptured slot is undefined, not empty.
func (s *Snapshot) Get(slot int) (Descriptor, bool) {
	d, ok := s.Slots[slot]
	return d, ok
}

// Clone returns a deep copy safe to mutate independently.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Taken:      s.Taken,
		Level:      s.Level,
		Slots:      make(map[int]Descriptor, len(s.Slots)),
		Configured: s.Configured,
		Captured:   s.Captured,
	}
	for k, v := range s.Slots {
		out.Slots[k] = v
	}
	return out
}

// SlotIndexes returns the captured slot indexes in ascending order.
func (s *Snapshot) SlotIndexes() []int {
	idx := make([]int, 0, len(s.Slots))
	for k := range s.Slots {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// Occupied counts entries that hold a real occupant rather than an explicit
// empty marker.
func (s *Snapshot) Occupied() int {
	n := 0
	for _, d := range s.Slots {
		if !d.IsEmpty() {
			n++
		}
	}
	return n
}
