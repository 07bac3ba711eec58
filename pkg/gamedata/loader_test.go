package gamedata_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/barkeepd/barkeep/pkg/gamedata"
)

func writeBundle(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoad_MissingManifest(t *testing.T) {
	_, err := gamedata.Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for bundle without manifest, got nil")
	}
}

func TestLoad_FullBundle(t *testing.T) {
	dir := writeBundle(t, map[string]string{
		"manifest.json":   `{"flavor":"era","build":"1.15.2.61582"}`,
		"abilities.json":  `[{"id":133,"name":"Fireball","rank":1},{"id":143,"name":"Fireball","rank":2},{"id":6603,"name":"Auto Attack","rank":0,"passive":false}]`,
		"items.json":      `[{"id":6948,"name":"Hearthstone"}]`,
		"companions.json": `[{"subtype":"mount","id":458,"name":"Brown Horse"}]`,
		"aliases.json":    `{"Throw Stone":"Throw"}`,
	})

	c, err := gamedata.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Manifest.Flavor != "era" {
		t.Errorf("manifest flavor: %q", c.Manifest.Flavor)
	}

	it, ok := c.ItemByID(6948)
	if !ok || it.Name != "Hearthstone" {
		t.Errorf("ItemByID(6948): %+v ok=%v", it, ok)
	}

	ranks := c.AbilitiesByName("fireball")
	if len(ranks) != 2 {
		t.Fatalf("expected 2 Fireball ranks, got %d", len(ranks))
	}
	if ranks[1].Rank != 2 {
		t.Errorf("expected catalog order to preserve ranks, got %+v", ranks)
	}

	// Bundle aliases extend, not replace, the defaults.
	if got := c.Alias("Throw Stone"); got != "Throw" {
		t.Errorf("bundle alias: %q", got)
	}
	if got := c.Alias("Attack"); got != "Auto Attack" {
		t.Errorf("default alias survived load: %q", got)
	}
	if got := c.Alias("Fireball"); got != "Fireball" {
		t.Errorf("unaliased name must pass through: %q", got)
	}
}

func TestLoad_PartialBundle(t *testing.T) {
	dir := writeBundle(t, map[string]string{
		"manifest.json": `{"flavor":"era","build":"x"}`,
	})

	c, err := gamedata.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.ItemByID(1); ok {
		t.Error("empty bundle resolved an item")
	}
}

func TestLoad_MalformedTable(t *testing.T) {
	dir := writeBundle(t, map[string]string{
		"manifest.json": `{"flavor":"era"}`,
		"items.json":    `{"not":"a list"}`,
	})
	if _, err := gamedata.Load(dir); err == nil {
		t.Fatal("expected error for malformed items table")
	}
}

func TestEmptyCatalog(t *testing.T) {
	c := gamedata.Empty()
	if got := c.Alias("Attack"); got != "Auto Attack" {
		t.Errorf("empty catalog missing default aliases: %q", got)
	}
	if _, ok := c.AbilityByID(133); ok {
		t.Error("empty catalog resolved an ability")
	}
}
