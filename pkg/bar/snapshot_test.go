package bar

import "testing"

func TestSnapshotSetAndGet(t *testing.T) {
	s := NewSnapshot(12)
	s.Set(1, Spell("Fireball"))
	s.Set(2, Empty)
	s.Set(1, Spell("Frostbolt")) // overwrite, not a new capture

	if s.Captured != 2 {
		t.Errorf("expected 2 captured entries, got %d", s.Captured)
	}

	d, ok := s.Get(1)
	if !ok || !d.Equal(Spell("Frostbolt")) {
		t.Errorf("slot 1: got %v (ok=%v)", d, ok)
	}

	// Slot 2 holds an explicit empty; slot 3 was never captured.
	d, ok = s.Get(2)
	if !ok || !d.IsEmpty() {
		t.Errorf("slot 2: expected explicit empty, got %v (ok=%v)", d, ok)
	}
	if _, ok := s.Get(3); ok {
		t.Errorf("slot 3: expected undefined, got an entry")
	}
}

func TestSnapshotCloneIsIndependent(t *testing.T) {
	s := NewSnapshot(30)
	s.Set(5, Item(6948))

	c := s.Clone()
	c.Set(5, Empty)
	c.Set(6, Spell("Sprint"))

	if d, _ := s.Get(5); !d.Equal(Item(6948)) {
		t.Errorf("clone mutation leaked into original: %v", d)
	}
	if _, ok := s.Get(6); ok {
		t.Errorf("clone addition leaked into original")
	}
	if c.Level != 30 || c.Captured != 2 {
		t.Errorf("clone lost fields: level=%d captured=%d", c.Level, c.Captured)
	}
}

func TestSnapshotCloneNil(t *testing.T) {
	var s *Snapshot
	if s.Clone() != nil {
		t.Errorf("expected nil clone of nil snapshot")
	}
}

func TestSnapshotSlotIndexesSorted(t *testing.T) {
	s := NewSnapshot(1)
	for _, i := range []int{61, 3, 24, 1} {
		s.Set(i, Spell("x"))
	}
	got := s.SlotIndexes()
	want := []int{1, 3, 24, 61}
	if len(got) != len(want) {
		t.Fatalf("expected %d indexes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestSnapshotOccupied(t *testing.T) {
	s := NewSnapshot(10)
	s.Set(1, Spell("Fireball"))
	s.Set(2, Empty)
	s.Set(3, Item(117))

	if got := s.Occupied(); got != 2 {
		t.Errorf("expected 2 occupied, got %d", got)
	}
}
