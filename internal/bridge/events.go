// Package bridge tails the JSON-lines files the game-side exporter appends
// to and turns new lines into typed events. One file per character; the
// watcher stamps the character from the file name so exporters don't have to
// repeat it on every line.
package bridge

import (
	"github.com/barkeepd/barkeep/pkg/bar"
	"github.com/barkeepd/barkeep/pkg/gamedata"
)

// Event types written by the exporter.
const (
	TypeLogin      = "login"
	TypeSlot       = "slot"
	TypeSlots      = "slots"
	TypeLevel      = "level"
	TypeSpec       = "spec"
	TypeCombat     = "combat"
	TypeBlocked    = "blocked"
	TypeAbilities  = "abilities"
	TypeBags       = "bags"
	TypeMacros     = "macros"
	TypeCompanions = "companions"
	TypeEquipSets  = "equipsets"
)

// Event is one exporter line. Type discriminates which fields carry data;
// everything else stays at its zero value.
type Event struct {
	Type      string `json:"type"`
	Character string `json:"character,omitempty"`

	Level int `json:"level,omitempty"`
	Spec  int `json:"spec,omitempty"`

	Slot       int                    `json:"slot,omitempty"`
	Descriptor *bar.Descriptor        `json:"descriptor,omitempty"`
	Slots      map[int]bar.Descriptor `json:"slots,omitempty"`

	In      bool   `json:"in,omitempty"`      // combat
	Blocked bool   `json:"blocked,omitempty"` // interface lock
	Reason  string `json:"reason,omitempty"`

	Abilities  []gamedata.Ability   `json:"abilities,omitempty"`
	Counts     map[int]int          `json:"counts,omitempty"` // bag contents by item id
	Names      []string             `json:"names,omitempty"`  // macros / equipment sets
	Companions []gamedata.Companion `json:"companions,omitempty"`
}
