package gamedata

import "strings"

type Ability struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Rank    int    `json:"rank"`
	Passive bool   `json:"passive"`
	Icon    string `json:"icon,omitempty"`
}

type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type Companion struct {
	SubType string `json:"subtype"`
	ID      int    `json:"id"`
	Name    string `json:"name"`
}

type Manifest struct {
	Flavor    string `json:"flavor"`
	Build     string `json:"build"`
	Generated string `json:"generated,omitempty"`
}

// Catalog is the static game-data bundle: every ability, item and companion
// the game client can ever report, plus the tooltip-name alias table. It
// backs name resolution in the CLI and seeds the simulator; the live
// character's known subset always comes from the client mirror instead.
type Catalog struct {
	Manifest   Manifest
	Abilities  []Ability
	Items      []Item
	Companions []Companion
	Aliases    map[string]string

	itemsByID     map[int]Item
	abilitiesByID map[int]Ability
}

func (c *Catalog) index() {
	c.itemsByID = make(map[int]Item, len(c.Items))
	for _, it := range c.Items {
		c.itemsByID[it.ID] = it
	}
	c.abilitiesByID = make(map[int]Ability, len(c.Abilities))
	for _, ab := range c.Abilities {
		c.abilitiesByID[ab.ID] = ab
	}
}

func (c *Catalog) ItemByID(id int) (Item, bool) {
	it, ok := c.itemsByID[id]
	return it, ok
}

func (c *Catalog) AbilityByID(id int) (Ability, bool) {
	ab, ok := c.abilitiesByID[id]
	return ab, ok
}

// AbilitiesByName returns every rank of the named ability in catalog order.
func (c *Catalog) AbilitiesByName(name string) []Ability {
	var out []Ability
	for _, ab := range c.Abilities {
		if strings.EqualFold(ab.Name, name) {
			out = append(out, ab)
		}
	}
	return out
}

// Alias maps a tooltip-captured spell name to its ability-list form,
// returning the input unchanged when no alias is known.
func (c *Catalog) Alias(name string) string {
	if c == nil || c.Aliases == nil {
		return name
	}
	if mapped, ok := c.Aliases[name]; ok {
		return mapped
	}
	return name
}

// DefaultAliases covers the handful of names that always differ between the
// slot tooltip and the ability list, applied even without a bundle on disk.
func DefaultAliases() map[string]string {
	return map[string]string{
		"Attack":    "Auto Attack",
		"Shoot Bow": "Shoot",
		"Shoot Gun": "Shoot",
	}
}
