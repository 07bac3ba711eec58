package gamedata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Load reads a bundle directory produced by `barkeep data fetch`. The
// manifest is required; the table files are optional so a partial bundle
// still resolves what it can. Bundle aliases extend the built-in defaults.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{Aliases: DefaultAliases()}

	if err := readJSON(filepath.Join(dir, "manifest.json"), &c.Manifest); err != nil {
		return nil, fmt.Errorf("load bundle manifest: %w", err)
	}

	if err := readOptional(filepath.Join(dir, "abilities.json"), &c.Abilities); err != nil {
		return nil, err
	}
	if err := readOptional(filepath.Join(dir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := readOptional(filepath.Join(dir, "companions.json"), &c.Companions); err != nil {
		return nil, err
	}

	extra := map[string]string{}
	if err := readOptional(filepath.Join(dir, "aliases.json"), &extra); err != nil {
		return nil, err
	}
	for from, to := range extra {
		c.Aliases[from] = to
	}

	c.index()
	return c, nil
}

// Empty returns a catalog with no bundle behind it: default aliases only.
// The daemon runs fine without fetched data; names just stay unresolved.
func Empty() *Catalog {
	c := &Catalog{Aliases: DefaultAliases()}
	c.index()
	return c
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func readOptional(path string, v any) error {
	err := readJSON(path, v)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
