// Package client maintains the daemon's mirror of one character's game
// client. Bridge events rebuild the mirror; placements are enqueued to the
// outbox and applied to the mirror optimistically. A later exporter line
// that contradicts an optimistic write is exactly the "silent override" the
// engine's verify pass corrects.
package client

import (
	"log/slog"
	"sort"

	"github.com/barkeepd/barkeep/internal/bridge"
	"github.com/barkeepd/barkeep/pkg/bar"
	"github.com/barkeepd/barkeep/pkg/gamedata"
)

// Mirror implements the engine's Client interface. It is owned by the event
// loop and never locks.
type Mirror struct {
	character     string
	level         int
	spec          int
	combat        bool
	blocked       bool
	blockedReason string

	slots      map[int]bar.Descriptor
	abilities  []gamedata.Ability
	bags       map[int]int
	macros     map[string]bool
	companions []gamedata.Companion
	equipsets  map[string]bool

	// tooltip maps a registry ability name back to the name the client
	// reports from the bar, the inverse of the capture-side alias table.
	tooltip map[string]string

	outbox *Outbox
	log    *slog.Logger
}

func NewMirror(character string, aliases map[string]string, outbox *Outbox, log *slog.Logger) *Mirror {
	return &Mirror{
		character: character,
		slots:     make(map[int]bar.Descriptor),
		bags:      make(map[int]int),
		macros:    make(map[string]bool),
		equipsets: make(map[string]bool),
		tooltip:   reverseAliases(aliases),
		outbox:    outbox,
		log:       log,
	}
}

// reverseAliases inverts tooltip->registry into registry->tooltip. When two
// tooltip names share a registry name the lexically smallest wins, so the
// choice is stable across runs.
func reverseAliases(aliases map[string]string) map[string]string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rev := make(map[string]string, len(keys))
	for _, k := range keys {
		if _, taken := rev[aliases[k]]; !taken {
			rev[aliases[k]] = k
		}
	}
	return rev
}

func (m *Mirror) Character() string { return m.character }

// Slots returns a copy of the mirrored bar contents.
func (m *Mirror) Slots() map[int]bar.Descriptor {
	slots := make(map[int]bar.Descriptor, len(m.slots))
	for slot, d := range m.slots {
		slots[slot] = d
	}
	return slots
}

// Apply folds one bridge event into the mirror. Events only mutate state;
// the daemon decides which engine handler to invoke afterwards.
func (m *Mirror) Apply(ev bridge.Event) {
	switch ev.Type {
	case bridge.TypeLogin:
		m.reset()
		m.level = ev.Level
		m.spec = ev.Spec
	case bridge.TypeSlot:
		if ev.Descriptor == nil || ev.Descriptor.IsEmpty() {
			delete(m.slots, ev.Slot)
		} else {
			m.slots[ev.Slot] = *ev.Descriptor
		}
	case bridge.TypeSlots:
		m.slots = make(map[int]bar.Descriptor, len(ev.Slots))
		for slot, d := range ev.Slots {
			if !d.IsEmpty() {
				m.slots[slot] = d
			}
		}
	case bridge.TypeLevel:
		m.level = ev.Level
	case bridge.TypeSpec:
		m.spec = ev.Spec
	case bridge.TypeCombat:
		m.combat = ev.In
	case bridge.TypeBlocked:
		m.blocked = ev.Blocked
		m.blockedReason = ev.Reason
	case bridge.TypeAbilities:
		m.abilities = ev.Abilities
	case bridge.TypeBags:
		m.bags = make(map[int]int, len(ev.Counts))
		for id, n := range ev.Counts {
			m.bags[id] = n
		}
	case bridge.TypeMacros:
		m.macros = nameSet(ev.Names)
	case bridge.TypeCompanions:
		m.companions = ev.Companions
	case bridge.TypeEquipSets:
		m.equipsets = nameSet(ev.Names)
	default:
		m.log.Warn("unknown export event type", "type", ev.Type)
	}
}

func (m *Mirror) reset() {
	m.level = 0
	m.spec = 0
	m.combat = false
	m.blocked = false
	m.blockedReason = ""
	m.slots = make(map[int]bar.Descriptor)
	m.abilities = nil
	m.bags = make(map[int]int)
	m.macros = make(map[string]bool)
	m.companions = nil
	m.equipsets = make(map[string]bool)
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func (m *Mirror) Blocked() (bool, string) { return m.blocked, m.blockedReason }
func (m *Mirror) InCombat() bool          { return m.combat }
func (m *Mirror) Level() int              { return m.level }
func (m *Mirror) ActiveSpec() int         { return m.spec }

func (m *Mirror) ReadSlot(slot int) bar.Descriptor { return m.slots[slot] }

func (m *Mirror) ClearSlot(slot int) {
	if err := m.outbox.Clear(slot); err != nil {
		// The mirror still clears: the next authoritative slots event
		// re-syncs it if the addon never saw the command.
		m.log.Warn("outbox write failed", "slot", slot, "err", err)
	}
	delete(m.slots, slot)
}

func (m *Mirror) PlaceAbility(slot, abilityID int) bool {
	var found *gamedata.Ability
	for i := range m.abilities {
		if m.abilities[i].ID == abilityID {
			found = &m.abilities[i]
			break
		}
	}
	if found == nil {
		return false
	}
	name := found.Name
	if tip, ok := m.tooltip[name]; ok {
		name = tip
	}
	return m.place(slot, bar.Spell(name))
}

func (m *Mirror) PlaceItem(slot, itemID int) bool {
	if m.bags[itemID] <= 0 {
		return false
	}
	return m.place(slot, bar.Item(itemID))
}

func (m *Mirror) PlaceMacro(slot int, name string) bool {
	if !m.macros[name] {
		return false
	}
	return m.place(slot, bar.Macro(name, ""))
}

func (m *Mirror) PlaceCompanion(slot int, subtype string, id int) bool {
	comp, ok := m.FindCompanion(subtype, id, "")
	if !ok {
		return false
	}
	return m.place(slot, bar.Companion(comp.SubType, comp.ID, comp.Name))
}

func (m *Mirror) PlaceEquipmentSet(slot int, name string) bool {
	if !m.equipsets[name] {
		return false
	}
	return m.place(slot, bar.EquipmentSet(name))
}

func (m *Mirror) place(slot int, d bar.Descriptor) bool {
	if err := m.outbox.Place(slot, d); err != nil {
		// The addon never saw the command, so the mirror must not claim
		// the slot changed.
		m.log.Warn("outbox write failed", "slot", slot, "err", err)
		return false
	}
	m.slots[slot] = d
	return true
}

func (m *Mirror) Abilities() []gamedata.Ability { return m.abilities }
func (m *Mirror) ItemCount(itemID int) int      { return m.bags[itemID] }
func (m *Mirror) HasMacro(name string) bool     { return m.macros[name] }
func (m *Mirror) HasEquipmentSet(name string) bool {
	return m.equipsets[name]
}

func (m *Mirror) FindCompanion(subtype string, id int, name string) (gamedata.Companion, bool) {
	for _, comp := range m.companions {
		if comp.SubType != subtype {
			continue
		}
		if id != 0 && comp.ID == id {
			return comp, true
		}
		if id == 0 && comp.Name == name {
			return comp, true
		}
	}
	return gamedata.Companion{}, false
}
