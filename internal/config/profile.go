package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/barkeepd/barkeep/pkg/bar"
)

// SlotSet is a set of managed action bar slots.
type SlotSet map[int]bool

// ParseSlots parses a slot list like "1-24,61-72,108" into a set. Slots are
// 1-based and capped at bar.MaxSlot.
func ParseSlots(s string) (SlotSet, error) {
	set := make(SlotSet)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, hi = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("slot range %q: %w", part, err)
		}
		b, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("slot range %q: %w", part, err)
		}
		if a > b || a < 1 || b > bar.MaxSlot {
			return nil, fmt.Errorf("slot range %q outside 1-%d", part, bar.MaxSlot)
		}
		for slot := a; slot <= b; slot++ {
			set[slot] = true
		}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("empty slot list %q", s)
	}
	return set, nil
}

// Profiles answers which slots the engine manages, with optional per-spec
// overrides.
type Profiles struct {
	base    SlotSet
	perSpec map[int]SlotSet
}

// Profiles builds the slot profiles from the configured slot lists.
func (c *Config) Profiles() (*Profiles, error) {
	base, err := ParseSlots(c.Slots)
	if err != nil {
		return nil, fmt.Errorf("slots: %w", err)
	}
	p := &Profiles{base: base, perSpec: make(map[int]SlotSet)}
	for spec, expr := range c.SpecSlots {
		set, err := ParseSlots(expr)
		if err != nil {
			return nil, fmt.Errorf("spec %d slots: %w", spec, err)
		}
		p.perSpec[spec] = set
	}
	return p, nil
}

func (p *Profiles) Enabled(slot, spec int) bool {
	if set, ok := p.perSpec[spec]; ok {
		return set[slot]
	}
	return p.base[slot]
}
