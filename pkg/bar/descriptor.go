package bar

import "fmt"

// MaxSlot is the highest addressable action bar slot. Slots are 1-based.
const MaxSlot = 120

// Kind discriminates what occupies an action bar slot.
type Kind string

const (
	KindEmpty        Kind = "empty"
	KindSpell        Kind = "spell"
	KindItem         Kind = "item"
	KindMacro        Kind = "macro"
	KindCompanion    Kind = "companion"
	KindEquipmentSet Kind = "equipset"
)

// Descriptor identifies the occupant of one action bar slot. Identity is
// kind-specific: name for spells, macros and equipment sets, id for items,
// subtype+id (or subtype+name) for companions. Icon and Body are carried for
// display and re-creation but never participate in equality.
type Descriptor struct {
	Kind    Kind   `json:"kind"`
	Name    string `json:"name,omitempty"`
	ID      int    `json:"id,omitempty"`
	SubType string `json:"subtype,omitempty"`
	Body    string `json:"body,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

// Empty is a convenience value for a vacant slot.
var Empty = Descriptor{Kind: KindEmpty}

// IsEmpty returns true if the descriptor names no occupant. The zero value
// counts as empty.
func (d Descriptor) IsEmpty() bool {
	return d.Kind == KindEmpty || d.Kind == ""
}

// Equal reports whether two descriptors identify the same occupant. Two
// empties are always equal regardless of leftover display fields.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.IsEmpty() || o.IsEmpty() {
		return d.IsEmpty() && o.IsEmpty()
	}
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindSpell, KindMacro, KindEquipmentSet:
		return d.Name == o.Name
	case KindItem:
		return d.ID == o.ID
	case KindCompanion:
		if d.SubType != o.SubType {
			return false
		}
		// The exporter supplies stable ids for modern clients; older
		// catalogs only carry names.
		if d.ID != 0 && o.ID != 0 {
			return d.ID == o.ID
		}
		return d.Name == o.Name
	default:
		return false
	}
}

// String renders a compact identity for logs and summaries.
func (d Descriptor) String() string {
	switch {
	case d.IsEmpty():
		return "empty"
	case d.Kind == KindItem:
		return fmt.Sprintf("item:%d", d.ID)
	case d.Kind == KindCompanion:
		if d.ID != 0 {
			return fmt.Sprintf("companion:%s:%d", d.SubType, d.ID)
		}
		return fmt.Sprintf("companion:%s:%s", d.SubType, d.Name)
	default:
		return fmt.Sprintf("%s:%s", d.Kind, d.Name)
	}
}

// DisplayName returns the human-facing name of the occupant, falling back to
// the numeric id for items that were captured before the catalog knew them.
func (d Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Kind == KindItem {
		return fmt.Sprintf("item %d", d.ID)
	}
	return string(d.Kind)
}

// Spell builds a spell descriptor.
func Spell(name string) Descriptor {
	return Descriptor{Kind: KindSpell, Name: name}
}

// Item builds an item descriptor.
func Item(id int) Descriptor {
	return Descriptor{Kind: KindItem, ID: id}
}

// Macro builds a macro descriptor.
func Macro(name, body string) Descriptor {
	return Descriptor{Kind: KindMacro, Name: name, Body: body}
}

// Companion builds a companion descriptor.
func Companion(subtype string, id int, name string) Descriptor {
	return Descriptor{Kind: KindCompanion, SubType: subtype, ID: id, Name: name}
}

// EquipmentSet builds an equipment set descriptor.
func EquipmentSet(name string) Descriptor {
	return Descriptor{Kind: KindEquipmentSet, Name: name}
}
