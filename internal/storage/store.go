package storage

import (
	"time"

	"github.com/barkeepd/barkeep/internal/layout"
	"github.com/barkeepd/barkeep/pkg/bar"
)

// CharacterDataFromStore extracts the serializable durable state from a
// runtime layout store. Session entries are skipped by construction.
func CharacterDataFromStore(st *layout.Store) *CharacterData {
	cd := &CharacterData{
		Character:   st.Character(),
		HighestSeen: st.HighestSeen(),
		SavedAt:     time.Now(),
	}
	st.EachDurable(func(spec, level int, snap *bar.Snapshot) {
		cd.Layouts = append(cd.Layouts, LayoutData{Spec: spec, Level: level, Bars: snap})
	})
	return cd
}

// LoadStore hydrates a layout store from the character's save file. A
// character with no file gets a fresh, clean store.
func (s *Storage) LoadStore(key string) (*layout.Store, error) {
	cd, err := s.LoadCharacter(key)
	if err != nil {
		return nil, err
	}
	st := layout.NewStore(key)
	if cd == nil {
		return st, nil
	}
	for _, l := range cd.Layouts {
		st.LoadDurable(l.Spec, l.Level, l.Bars)
	}
	st.LoadHighestSeen(cd.HighestSeen)
	s.log.Info("loaded character layouts",
		"character", key,
		"layouts", len(cd.Layouts),
		"highest_seen", cd.HighestSeen)
	return st, nil
}

// SaveStore flushes a store's durable tier to disk and marks it clean.
func (s *Storage) SaveStore(st *layout.Store) error {
	if err := s.SaveCharacter(st.Character(), CharacterDataFromStore(st)); err != nil {
		return err
	}
	st.MarkSaved()
	return nil
}
