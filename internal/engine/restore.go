package engine

import (
	"fmt"

	"github.com/barkeepd/barkeep/pkg/bar"
)

// Restore applies a stored layout to the live bars. level 0 means the
// current level. During a rerun (highest seen level above the requested
// one) the master layout is substituted unconditionally and forceClear is
// implied: the master is the only authoritative source, and anything the
// client auto-placed that is not in it has to go.
//
// Per-slot placement failures are collected in the outcome; only a missing
// layout, a blocked interface or an internal fault return an error. Already
// applied placements are never rolled back.
func (e *Engine) Restore(level int, forceClear bool) (out *RestoreOutcome, err error) {
	// A newer restore invalidates every verify pass scheduled by older
	// ones, even if this call fails before placing anything.
	e.verifyGen++
	gen := e.verifyGen
	e.verifyAttempt = 0
	e.pendingVerify = false

	if blocked, reason := e.client.Blocked(); blocked {
		return nil, &BlockedError{Reason: reason}
	}
	spec := e.client.ActiveSpec()
	if spec <= 0 {
		return nil, &BlockedError{Reason: "no active specialization"}
	}
	if level <= 0 {
		level = e.client.Level()
	}
	requested := level

	if highest := e.store.HighestSeen(); highest > level {
		level = highest
		forceClear = true
	}

	snap, tier, ok := e.store.Get(level, spec)
	if !ok {
		return nil, fmt.Errorf("level %d spec %d: %w", level, spec, ErrNoLayout)
	}

	out = &RestoreOutcome{
		Requested:  requested,
		Level:      level,
		Spec:       spec,
		Tier:       tier,
		ForceClear: forceClear,
	}

	e.restoring = true
	defer func() {
		e.restoring = false
		if r := recover(); r != nil {
			err = fmt.Errorf("restore batch aborted: %v", r)
		}
	}()

	for _, slot := range e.enabledSlots(spec) {
		d, captured := snap.Get(slot)
		if !captured || d.IsEmpty() {
			e.client.ClearSlot(slot)
			out.Cleared++
			continue
		}
		e.placeDescriptor(slot, d, forceClear, out)
	}

	// Immediate correction pass: the client may have silently rejected or
	// overridden placements within the batch.
	out.Corrected = e.verifyPass(snap, spec, forceClear)
	if out.Corrected > 0 && e.cfg.VerifyRetries > 0 {
		e.beginVerify(gen, snap, spec, forceClear, 1)
	} else {
		e.settleVerify(spec, forceClear)
	}

	e.log.Info("restore complete", "summary", out.Summary(),
		"tier", string(tier), "force_clear", forceClear)
	return out, nil
}

// beginVerify moves the verify state machine to Verifying(attempt) and
// schedules the pass. The scheduled callback self-checks its generation:
// when a newer Restore has run in the meantime the callback is a no-op.
func (e *Engine) beginVerify(gen uint64, expected *bar.Snapshot, spec int, forceClear bool, attempt int) {
	e.pendingVerify = true
	e.verifyAttempt = attempt

	e.timer.After(e.cfg.VerifyDelay, func() {
		if gen != e.verifyGen {
			e.log.Debug("verify pass superseded", "generation", gen, "current", e.verifyGen)
			return
		}
		e.pendingVerify = false

		e.restoring = true
		corrected := e.verifyPass(expected, spec, forceClear)
		e.restoring = false

		if corrected > 0 && attempt < e.cfg.VerifyRetries {
			e.beginVerify(gen, expected, spec, forceClear, attempt+1)
			return
		}
		if corrected > 0 {
			e.log.Warn("verify retries exhausted",
				"attempt", attempt, "uncorrected", corrected)
		}
		e.settleVerify(spec, forceClear)
	})
}

// settleVerify returns the state machine to Idle. A forceClear restore then
// re-baselines the session tier from live state so the next diff compares
// against post-correction reality.
func (e *Engine) settleVerify(spec int, forceClear bool) {
	e.verifyAttempt = 0
	e.pendingVerify = false
	if !forceClear {
		return
	}
	level := e.client.Level()
	e.store.SaveSession(level, e.snapshotBars(level, spec), spec)
	e.log.Debug("session baseline refreshed", "level", level, "spec", spec)
}

// verifyPass compares every enabled slot against the expected layout and
// re-places mismatches through the normal placement policy. Returns the
// number of mismatches acted on, whether or not the re-placement stuck.
func (e *Engine) verifyPass(expected *bar.Snapshot, spec int, forceClear bool) int {
	corrected := 0
	for _, slot := range e.enabledSlots(spec) {
		want, captured := expected.Get(slot)
		if !captured {
			want = bar.Empty
		}
		live := e.client.ReadSlot(slot)
		if live.Equal(want) {
			continue
		}
		corrected++
		if want.IsEmpty() {
			e.client.ClearSlot(slot)
			continue
		}
		e.placeDescriptor(slot, want, forceClear, nil)
	}
	return corrected
}

// placeDescriptor routes one descriptor to its kind-specific placer.
// Failures are recorded on out when the caller wants them (the verify pass
// passes nil and only counts attempts).
func (e *Engine) placeDescriptor(slot int, d bar.Descriptor, forceClear bool, out *RestoreOutcome) {
	fail := func(reason Reason) {
		if out != nil {
			out.fail(slot, d, reason)
		}
	}
	placed := func() {
		if out != nil {
			out.Restored++
		}
	}

	switch d.Kind {
	case bar.KindSpell:
		e.placeSpell(slot, d, forceClear, fail, placed)
	case bar.KindItem:
		e.placeItem(slot, d, fail, placed)
	case bar.KindMacro:
		if d.Name == "" {
			fail(ReasonMissingData)
			return
		}
		e.client.ClearSlot(slot)
		if !e.client.HasMacro(d.Name) || !e.client.PlaceMacro(slot, d.Name) {
			fail(ReasonNotFound)
			return
		}
		placed()
	case bar.KindCompanion:
		if d.Name == "" && d.ID == 0 {
			fail(ReasonMissingData)
			return
		}
		e.client.ClearSlot(slot)
		comp, ok := e.client.FindCompanion(d.SubType, d.ID, d.Name)
		if !ok || !e.client.PlaceCompanion(slot, comp.SubType, comp.ID) {
			fail(ReasonNotFound)
			return
		}
		placed()
	case bar.KindEquipmentSet:
		if d.Name == "" {
			fail(ReasonMissingData)
			return
		}
		e.client.ClearSlot(slot)
		if !e.client.HasEquipmentSet(d.Name) || !e.client.PlaceEquipmentSet(slot, d.Name) {
			fail(ReasonNotFound)
			return
		}
		placed()
	default:
		fail(ReasonUnsupported)
	}
}

// placeSpell resolves a captured spell name against the character's known
// ability list. The list is rank-ordered, so the scan keeps the last name
// match: the highest known rank wins. Names that differ between tooltip and
// ability list go through the alias table first.
func (e *Engine) placeSpell(slot int, d bar.Descriptor, forceClear bool, fail func(Reason), placed func()) {
	if d.Name == "" {
		fail(ReasonMissingData)
		return
	}
	name := d.Name
	if alias, ok := e.cfg.Aliases[name]; ok {
		name = alias
	}

	abilities := e.client.Abilities()
	found := -1
	for i := range abilities {
		if abilities[i].Name == name {
			found = i
		}
	}
	if found < 0 {
		if forceClear {
			// Stale client-injected ability: remove it. Without
			// forceClear the slot is preserved in case the ability is
			// learnable later.
			e.client.ClearSlot(slot)
		}
		fail(ReasonNotFound)
		return
	}
	if abilities[found].Passive {
		fail(ReasonPassive)
		return
	}
	if !e.client.PlaceAbility(slot, abilities[found].ID) {
		fail(ReasonNotFound)
		return
	}
	placed()
}

// placeItem restores an item slot without ever destroying a working
// placement: the slot is only touched when the exact item is missing and
// the bags can actually supply it.
func (e *Engine) placeItem(slot int, d bar.Descriptor, fail func(Reason), placed func()) {
	if d.ID == 0 {
		fail(ReasonMissingData)
		return
	}
	if e.client.ReadSlot(slot).Equal(d) {
		placed()
		return
	}
	if e.client.ItemCount(d.ID) == 0 {
		fail(ReasonNotInBags)
		return
	}
	if !e.client.PlaceItem(slot, d.ID) {
		fail(ReasonNotFound)
		return
	}
	placed()
}

// ClearAllSlots empties every managed slot. The batch is guarded the same
// way as restore: one bad slot cannot crash the run.
func (e *Engine) ClearAllSlots() (cleared int, err error) {
	if blocked, reason := e.client.Blocked(); blocked {
		return 0, &BlockedError{Reason: reason}
	}
	spec := e.client.ActiveSpec()
	if spec <= 0 {
		return 0, &BlockedError{Reason: "no active specialization"}
	}

	e.restoring = true
	defer func() {
		e.restoring = false
		if r := recover(); r != nil {
			err = fmt.Errorf("clear-all batch aborted: %v", r)
		}
	}()

	for _, slot := range e.enabledSlots(spec) {
		e.client.ClearSlot(slot)
		cleared++
	}
	return cleared, nil
}
