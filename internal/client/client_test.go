package client

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/barkeepd/barkeep/internal/bridge"
	"github.com/barkeepd/barkeep/pkg/bar"
	"github.com/barkeepd/barkeep/pkg/gamedata"
)

func newTestMirror(t *testing.T) (*Mirror, string) {
	t.Helper()
	dir := t.TempDir()
	outbox := NewOutbox(dir, "Pip", "session-1")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewMirror("Pip", gamedata.DefaultAliases(), outbox, log)
	return m, filepath.Join(dir, "Pip.jsonl")
}

func readCommands(t *testing.T, path string) []Command {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read outbox: %v", err)
	}
	var cmds []Command
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			t.Fatalf("parse outbox line %q: %v", line, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

func TestMirrorAppliesEvents(t *testing.T) {
	m, _ := newTestMirror(t)

	m.Apply(bridge.Event{Type: bridge.TypeLogin, Level: 30, Spec: 1})
	m.Apply(bridge.Event{Type: bridge.TypeSlots, Slots: map[int]bar.Descriptor{
		1: bar.Spell("Fireball"),
		2: bar.Item(6948),
	}})
	m.Apply(bridge.Event{Type: bridge.TypeAbilities, Abilities: []gamedata.Ability{
		{ID: 7, Name: "Fireball"},
	}})
	m.Apply(bridge.Event{Type: bridge.TypeBags, Counts: map[int]int{6948: 3}})
	m.Apply(bridge.Event{Type: bridge.TypeMacros, Names: []string{"focus"}})
	m.Apply(bridge.Event{Type: bridge.TypeEquipSets, Names: []string{"tank"}})
	m.Apply(bridge.Event{Type: bridge.TypeCompanions, Companions: []gamedata.Companion{
		{SubType: "CRITTER", ID: 40, Name: "Pug"},
	}})

	if m.Level() != 30 || m.ActiveSpec() != 1 {
		t.Errorf("level/spec = %d/%d, want 30/1", m.Level(), m.ActiveSpec())
	}
	if d := m.ReadSlot(1); !d.Equal(bar.Spell("Fireball")) {
		t.Errorf("slot 1 = %s", d)
	}
	if m.ItemCount(6948) != 3 {
		t.Errorf("item count = %d, want 3", m.ItemCount(6948))
	}
	if !m.HasMacro("focus") || !m.HasEquipmentSet("tank") {
		t.Errorf("registries incomplete")
	}
	if _, ok := m.FindCompanion("CRITTER", 40, ""); !ok {
		t.Errorf("companion not found by id")
	}
	if _, ok := m.FindCompanion("CRITTER", 0, "Pug"); !ok {
		t.Errorf("companion not found by name")
	}

	// Single-slot updates override and clear.
	m.Apply(bridge.Event{Type: bridge.TypeSlot, Slot: 1, Descriptor: &bar.Descriptor{Kind: bar.KindItem, ID: 118}})
	if d := m.ReadSlot(1); !d.Equal(bar.Item(118)) {
		t.Errorf("slot 1 = %s after slot event", d)
	}
	m.Apply(bridge.Event{Type: bridge.TypeSlot, Slot: 1})
	if d := m.ReadSlot(1); !d.IsEmpty() {
		t.Errorf("slot 1 = %s, want cleared", d)
	}

	// Combat and blocked toggles.
	m.Apply(bridge.Event{Type: bridge.TypeCombat, In: true})
	if !m.InCombat() {
		t.Errorf("combat flag not applied")
	}
	m.Apply(bridge.Event{Type: bridge.TypeBlocked, Blocked: true, Reason: "vehicle"})
	if blocked, why := m.Blocked(); !blocked || why != "vehicle" {
		t.Errorf("blocked = %v/%q", blocked, why)
	}

	// A fresh login resets everything.
	m.Apply(bridge.Event{Type: bridge.TypeLogin, Level: 31, Spec: 2})
	if m.Level() != 31 || m.ActiveSpec() != 2 {
		t.Errorf("level/spec = %d/%d after relogin", m.Level(), m.ActiveSpec())
	}
	if m.InCombat() || m.HasMacro("focus") || m.ItemCount(6948) != 0 {
		t.Errorf("relogin did not reset the mirror")
	}
}

func TestMirrorPlacementsWriteOutbox(t *testing.T) {
	m, outboxPath := newTestMirror(t)
	m.Apply(bridge.Event{Type: bridge.TypeLogin, Level: 60, Spec: 1})
	m.Apply(bridge.Event{Type: bridge.TypeAbilities, Abilities: []gamedata.Ability{
		{ID: 7, Name: "Fireball"},
	}})

	if !m.PlaceAbility(3, 7) {
		t.Fatalf("placement refused")
	}
	m.ClearSlot(4)

	// Optimistic view updates immediately.
	if d := m.ReadSlot(3); !d.Equal(bar.Spell("Fireball")) {
		t.Errorf("slot 3 = %s, want the optimistic placement", d)
	}

	cmds := readCommands(t, outboxPath)
	if len(cmds) != 2 {
		t.Fatalf("outbox commands = %d, want 2", len(cmds))
	}
	if cmds[0].Action != ActionPlace || cmds[0].Slot != 3 {
		t.Errorf("first command = %+v", cmds[0])
	}
	if cmds[0].Descriptor == nil || !cmds[0].Descriptor.Equal(bar.Spell("Fireball")) {
		t.Errorf("first command descriptor = %v", cmds[0].Descriptor)
	}
	if cmds[1].Action != ActionClear || cmds[1].Slot != 4 {
		t.Errorf("second command = %+v", cmds[1])
	}
	for i, cmd := range cmds {
		if cmd.Session != "session-1" || cmd.Seq != i+1 {
			t.Errorf("command %d correlation = %q/%d", i, cmd.Session, cmd.Seq)
		}
	}
}

func TestMirrorRejectsUnknownTargets(t *testing.T) {
	m, outboxPath := newTestMirror(t)
	m.Apply(bridge.Event{Type: bridge.TypeLogin, Level: 60, Spec: 1})

	if m.PlaceAbility(1, 99) {
		t.Errorf("unknown ability placed")
	}
	if m.PlaceItem(1, 6948) {
		t.Errorf("item placed with empty bags")
	}
	if m.PlaceMacro(1, "nope") {
		t.Errorf("unknown macro placed")
	}
	if m.PlaceCompanion(1, "CRITTER", 40) {
		t.Errorf("unknown companion placed")
	}
	if m.PlaceEquipmentSet(1, "nope") {
		t.Errorf("unknown equipment set placed")
	}
	if d := m.ReadSlot(1); !d.IsEmpty() {
		t.Errorf("slot 1 = %s, want untouched", d)
	}
	if _, err := os.Stat(outboxPath); !os.IsNotExist(err) {
		t.Errorf("rejected placements reached the outbox")
	}
}

func TestMirrorReportsTooltipNames(t *testing.T) {
	m, _ := newTestMirror(t)
	m.Apply(bridge.Event{Type: bridge.TypeAbilities, Abilities: []gamedata.Ability{
		{ID: 5, Name: "Auto Attack"},
	}})

	// The registry knows "Auto Attack" but the bar reports the tooltip
	// name, which is what captures store and what verify compares against.
	if !m.PlaceAbility(2, 5) {
		t.Fatalf("placement refused")
	}
	if d := m.ReadSlot(2); !d.Equal(bar.Spell("Attack")) {
		t.Errorf("slot 2 = %s, want spell:Attack", d)
	}
}
