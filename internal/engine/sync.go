package engine

import "github.com/barkeepd/barkeep/pkg/bar"

// clearPropagates reports whether an observed clear of this occupant kind is
// trusted as user intent. Companions, macros and equipment sets are
// obtainable at any level, so removing one is deliberate. A spell or item
// vanishing at a lower level usually means the client could not supply it
// there, not that the user cleared it.
func clearPropagates(k bar.Kind) bool {
	switch k {
	case bar.KindCompanion, bar.KindMacro, bar.KindEquipmentSet:
		return true
	default:
		return false
	}
}

// syncToMaster diffs two same-level snapshots and applies the user's edits
// to the master layout. Each changed slot is classified, in order, as a
// clear, a move/swap, or a new placement, and the master is mutated in
// place. Returns the number of master slots that changed.
func (e *Engine) syncToMaster(old, fresh *bar.Snapshot, spec int) int {
	master, ok := e.store.Master(spec)
	if !ok {
		e.log.Warn("no master layout to sync into",
			"highest_seen", e.store.HighestSeen(), "spec", spec)
		return 0
	}

	slots := e.enabledSlots(spec)
	at := func(snap *bar.Snapshot, slot int) bar.Descriptor {
		if d, ok := snap.Get(slot); ok {
			return d
		}
		return bar.Empty
	}

	// Slots consumed by a classification. A cleared slot must not later be
	// mistaken for a move source, and an exchanged pair is one edit, not
	// two.
	handled := make(map[int]bool)
	changed := 0

	for _, slot := range slots {
		if handled[slot] {
			continue
		}
		oldD := at(old, slot)
		newD := at(fresh, slot)
		if oldD.Equal(newD) {
			continue
		}

		if newD.IsEmpty() {
			if !clearPropagates(oldD.Kind) {
				// Ignored clear: the slot may still act as a move source.
				continue
			}
			master.Set(slot, bar.Empty)
			handled[slot] = true
			changed++
			e.log.Debug("master clear", "slot", slot, "was", oldD.String())
			continue
		}

		// Move/swap: find where newD came from. A source held newD before
		// the edit and is now empty (move) or now holds what this slot
		// used to (swap). First match in scan order wins; duplicate
		// descriptors are not disambiguated further.
		source := 0
		for _, s := range slots {
			if s == slot || handled[s] {
				continue
			}
			if !at(old, s).Equal(newD) {
				continue
			}
			sNew := at(fresh, s)
			if sNew.IsEmpty() || sNew.Equal(oldD) {
				source = s
				break
			}
		}

		if source != 0 {
			// Exchange the master's current contents of the pair.
			a := at(master, slot)
			b := at(master, source)
			master.Set(slot, b)
			master.Set(source, a)
			handled[slot] = true
			handled[source] = true
			changed++
			e.log.Debug("master exchange",
				"slot", slot, "source", source, "descriptor", newD.String())
			continue
		}

		// New placement from outside the bar. The same occupant must not
		// sit in two master slots: clear any previous home first.
		for _, s := range master.SlotIndexes() {
			if s != slot && at(master, s).Equal(newD) {
				master.Set(s, bar.Empty)
				e.log.Debug("master dedup", "slot", s, "descriptor", newD.String())
			}
		}
		master.Set(slot, newD)
		handled[slot] = true
		changed++
		e.log.Debug("master place", "slot", slot, "descriptor", newD.String())
	}

	if changed > 0 {
		// Re-saving the master mirrors it into the session tier at the
		// master level and marks the store dirty for the next flush.
		e.store.Save(e.store.HighestSeen(), master, spec)
		e.log.Info("synced edits to master",
			"changes", changed, "level", fresh.Level, "master_level", e.store.HighestSeen())
	}
	return changed
}
