package storage

import (
	"time"

	"github.com/barkeepd/barkeep/pkg/bar"
)

// CharacterData is the serializable representation of one character's
// durable layout state. The session tier is deliberately absent: it never
// survives a restart.
type CharacterData struct {
	Character   string       `json:"character"`
	HighestSeen int          `json:"highest_seen"`
	SavedAt     time.Time    `json:"saved_at"`
	Layouts     []LayoutData `json:"layouts"`
}

// LayoutData is one durable layout keyed by specialization and level.
type LayoutData struct {
	Spec  int           `json:"spec"`
	Level int           `json:"level"`
	Bars  *bar.Snapshot `json:"bars"`
}
