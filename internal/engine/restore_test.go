package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/barkeepd/barkeep/internal/layout"
	"github.com/barkeepd/barkeep/pkg/bar"
	"github.com/barkeepd/barkeep/pkg/gamedata"
)

// fullClient returns a client that can satisfy every descriptor kind.
func fullClient() *fakeClient {
	c := newFakeClient()
	c.abilities = []gamedata.Ability{{ID: 7, Name: "Fireball"}}
	c.bags[6948] = 1
	c.macros["focus"] = true
	c.companions = []gamedata.Companion{{SubType: "CRITTER", ID: 40, Name: "Pug"}}
	c.equipsets["tank"] = true
	return c
}

func fullLayout() map[int]bar.Descriptor {
	return map[int]bar.Descriptor{
		1: bar.Spell("Fireball"),
		2: bar.Item(6948),
		3: bar.Macro("focus", "/focus"),
		4: bar.Companion("CRITTER", 40, "Pug"),
		5: bar.EquipmentSet("tank"),
	}
}

func TestRestoreAppliesLayout(t *testing.T) {
	c := fullClient()
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, fullLayout()), 1)

	out, err := e.Restore(0, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if out.Restored != 5 {
		t.Errorf("restored = %d, want 5", out.Restored)
	}
	if out.Cleared != 7 {
		t.Errorf("cleared = %d, want the 7 unoccupied managed slots", out.Cleared)
	}
	if len(out.Failures) != 0 {
		t.Errorf("failures = %v, want none", out.Failures)
	}
	if out.Level != 60 || out.Requested != 60 || out.Tier != layout.TierDurable {
		t.Errorf("outcome context = %+v", out)
	}
	for slot, want := range fullLayout() {
		if got := c.slots[slot]; !got.Equal(want) {
			t.Errorf("slot %d = %s, want %s", slot, got, want)
		}
	}
	if tm.pending() != 0 {
		t.Errorf("clean restore scheduled a verify pass")
	}
	if got, want := out.Summary(), "restored 5 slots at level 60"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	c := fullClient()
	e, st, _ := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, fullLayout()), 1)

	if _, err := e.Restore(0, false); err != nil {
		t.Fatalf("first restore: %v", err)
	}
	first := make(map[int]bar.Descriptor, len(c.slots))
	for slot, d := range c.slots {
		first[slot] = d
	}

	out, err := e.Restore(0, false)
	if err != nil {
		t.Fatalf("second restore: %v", err)
	}
	if len(out.Failures) != 0 || out.Corrected != 0 {
		t.Errorf("second restore not clean: %+v", out)
	}
	if diff := cmp.Diff(first, c.slots); diff != "" {
		t.Errorf("bars changed between runs (-first +second):\n%s", diff)
	}
}

func TestRestoreHighestRankWins(t *testing.T) {
	c := newFakeClient()
	c.abilities = []gamedata.Ability{
		{ID: 10, Name: "Fireball", Rank: 1},
		{ID: 55, Name: "Fireball", Rank: 2},
	}
	e, st, _ := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Fireball")}), 1)

	if _, err := e.Restore(0, false); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := c.placedAbility[1]; got != 55 {
		t.Errorf("placed ability id %d, want the later rank 55", got)
	}
}

func TestRestoreAliasResolution(t *testing.T) {
	c := newFakeClient()
	c.abilities = []gamedata.Ability{{ID: 5, Name: "Auto Attack"}}
	c.tooltips[5] = "Attack" // the bar reports the tooltip name back
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Attack")}), 1)

	out, err := e.Restore(0, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := c.placedAbility[1]; got != 5 {
		t.Errorf("placed ability id %d, want the aliased 5", got)
	}
	if got := c.slots[1]; !got.Equal(bar.Spell("Attack")) {
		t.Errorf("slot 1 = %s, want the captured identity back", got)
	}
	// The round trip must not look like a mismatch to the verify pass.
	if out.Corrected != 0 || tm.pending() != 0 {
		t.Errorf("alias round trip triggered verification: %+v", out)
	}
}

func TestRestorePassiveNeverPlaced(t *testing.T) {
	c := newFakeClient()
	c.abilities = []gamedata.Ability{{ID: 9, Name: "Armor", Passive: true}}
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Armor")}), 1)

	out, err := e.Restore(0, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if c.places != 0 {
		t.Errorf("placement attempted for a passive ability")
	}
	if len(out.Failures) != 1 || out.Failures[0].Reason != ReasonPassive {
		t.Errorf("failures = %v, want one passive", out.Failures)
	}
	tm.fireAll()
	if e.verifyAttempt != 0 {
		t.Errorf("verify state not idle after retries exhausted")
	}
}

func TestRestoreMissingItemProtectsSlot(t *testing.T) {
	c := newFakeClient()
	c.slots[2] = bar.Item(888) // something useful already sits here
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{2: bar.Item(777)}), 1)

	out, err := e.Restore(0, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(out.Failures) != 1 || out.Failures[0].Reason != ReasonNotInBags {
		t.Errorf("failures = %v, want one not-in-bags", out.Failures)
	}
	tm.fireAll()
	// Through the initial batch and every verify pass the occupied slot
	// survives, because the bags cannot supply a replacement.
	if got := c.slots[2]; !got.Equal(bar.Item(888)) {
		t.Errorf("slot 2 = %s, want the occupant protected", got)
	}
}

func TestRestoreMasterSubstitution(t *testing.T) {
	c := newFakeClient()
	c.level = 30
	c.abilities = []gamedata.Ability{{ID: 10, Name: "Smite"}}
	c.slots[6] = bar.Spell("Leftover")
	e, st, _ := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Smite")}), 1)

	out, err := e.Restore(30, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if out.Level != 60 || out.Requested != 30 || !out.ForceClear {
		t.Fatalf("outcome = %+v, want the master substituted with force clear", out)
	}
	if got := c.slots[1]; !got.Equal(bar.Spell("Smite")) {
		t.Errorf("slot 1 = %s, want spell:Smite", got)
	}
	if d, ok := c.slots[6]; ok {
		t.Errorf("slot 6 = %s, want client junk cleared", d)
	}
	// After settling, the session baseline reflects post-restore reality at
	// the level the character actually is.
	if _, ok := st.Session(30, 1); !ok {
		t.Errorf("session baseline not refreshed after force clear")
	}
	wantSummary := "restored 1 slots at level 60 (master, requested 30)"
	if got := out.Summary(); got != wantSummary {
		t.Errorf("summary = %q, want %q", got, wantSummary)
	}
}

func TestRestoreForceClearRemovesStaleSpell(t *testing.T) {
	c := newFakeClient()
	c.level = 30
	c.slots[1] = bar.Spell("Ascendance") // injected by the client, not learnable yet
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Ascendance")}), 1)

	out, err := e.Restore(30, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(out.Failures) != 1 || out.Failures[0].Reason != ReasonNotFound {
		t.Errorf("failures = %v, want one not-found", out.Failures)
	}
	if _, ok := c.slots[1]; ok {
		t.Errorf("stale spell survived a force-clear restore")
	}
	tm.fireAll()
	if tm.pending() != 0 || e.verifyAttempt != 0 {
		t.Errorf("verify loop did not settle")
	}
}

func TestRestoreWithoutForceClearKeepsUnknownSpell(t *testing.T) {
	c := newFakeClient()
	c.slots[1] = bar.Spell("Ascendance")
	e, st, _ := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Ascendance")}), 1)

	// Same level, no force clear: the slot is left alone in case the
	// ability becomes known later.
	out, err := e.Restore(60, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(out.Failures) != 1 || out.Failures[0].Reason != ReasonNotFound {
		t.Errorf("failures = %v, want one not-found", out.Failures)
	}
	if got := c.slots[1]; !got.Equal(bar.Spell("Ascendance")) {
		t.Errorf("slot 1 = %s, want left in place", got)
	}
}

func TestRestoreVerifyConvergence(t *testing.T) {
	c := newFakeClient()
	c.abilities = []gamedata.Ability{{ID: 10, Name: "Smite"}}
	c.failFirst[1] = 2 // the client drops the first two placements
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Smite")}), 1)

	out, err := e.Restore(0, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if out.Corrected != 1 {
		t.Errorf("corrected = %d, want 1", out.Corrected)
	}
	if tm.pending() != 1 {
		t.Fatalf("pending verify passes = %d, want 1", tm.pending())
	}

	// First delayed pass re-places successfully, second confirms and
	// settles.
	tm.fire()
	if got := c.slots[1]; !got.Equal(bar.Spell("Smite")) {
		t.Fatalf("slot 1 = %s after verify pass, want spell:Smite", got)
	}
	if tm.pending() != 1 {
		t.Fatalf("confirming pass not scheduled")
	}
	tm.fire()
	if tm.pending() != 0 || e.verifyAttempt != 0 {
		t.Errorf("verify loop did not settle after convergence")
	}
}

func TestRestoreNewerRunSupersedesVerify(t *testing.T) {
	c := newFakeClient()
	c.abilities = []gamedata.Ability{{ID: 10, Name: "Smite"}}
	c.rejectPlace[1] = true
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{1: bar.Spell("Smite")}), 1)

	// First restore cannot fill slot 1 and schedules a verify pass.
	if _, err := e.Restore(0, false); err != nil {
		t.Fatalf("first restore: %v", err)
	}
	if tm.pending() != 1 {
		t.Fatalf("pending verify passes = %d, want 1", tm.pending())
	}

	// A second restore succeeds outright; the stale callback must no-op.
	c.rejectPlace[1] = false
	if _, err := e.Restore(0, false); err != nil {
		t.Fatalf("second restore: %v", err)
	}
	places, clears := c.places, c.clears
	tm.fireAll()
	if c.places != places || c.clears != clears {
		t.Errorf("superseded verify pass touched the bars")
	}
	if got := c.slots[1]; !got.Equal(bar.Spell("Smite")) {
		t.Errorf("slot 1 = %s, want spell:Smite", got)
	}
}

func TestRestoreNoLayout(t *testing.T) {
	c := newFakeClient()
	e, _, _ := newTestEngine(c)

	_, err := e.Restore(0, false)
	if !errors.Is(err, ErrNoLayout) {
		t.Fatalf("err = %v, want ErrNoLayout", err)
	}
}

func TestRestoreBlocked(t *testing.T) {
	c := newFakeClient()
	c.blocked = true
	c.blockedWhy = "possessed"
	e, st, _ := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, fullLayout()), 1)

	_, err := e.Restore(0, false)
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want BlockedError", err)
	}
}

func TestRestoreFailureSummaryAggregates(t *testing.T) {
	c := newFakeClient()
	e, st, tm := newTestEngine(c)
	st.ObserveLevel(60)
	st.Save(60, snapOf(60, map[int]bar.Descriptor{
		1: bar.Spell("Unknown1"),
		2: bar.Spell("Unknown2"),
		3: bar.Spell("Unknown3"),
		4: bar.Item(999),
	}), 1)

	out, err := e.Restore(0, false)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(out.Failures) != 4 {
		t.Fatalf("failures = %d, want 4", len(out.Failures))
	}
	want := "restored 0 slots at level 60; 4 failed (not-found: Unknown1, Unknown2 +1 more; not-in-bags: item 999)"
	if got := out.Summary(); got != want {
		t.Errorf("summary = %q\nwant      %q", got, want)
	}
	tm.fireAll()
}

func TestClearAllSlots(t *testing.T) {
	c := fullClient()
	for slot, d := range fullLayout() {
		c.slots[slot] = d
	}
	e, _, _ := newTestEngine(c)

	cleared, err := e.ClearAllSlots()
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if cleared != 12 {
		t.Errorf("cleared = %d, want every managed slot", cleared)
	}
	if len(c.slots) != 0 {
		t.Errorf("%d slots still occupied", len(c.slots))
	}

	c.blocked = true
	c.blockedWhy = "vehicle"
	if _, err := e.ClearAllSlots(); err == nil {
		t.Errorf("clear all succeeded while blocked")
	}
}
