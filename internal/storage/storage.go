package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Storage handles file-based persistence of character layout data.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a Storage rooted at dir, creating the characters subdirectory
// as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	charDir := filepath.Join(dir, "characters")
	if err := os.MkdirAll(charDir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", charDir, err)
	}
	return &Storage{dir: dir, log: log}, nil
}

// LoadCharacter reads characters/<key>.json and returns the data, or nil if
// the character has never been saved.
func (s *Storage) LoadCharacter(key string) (*CharacterData, error) {
	path := s.characterPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read character %s: %w", key, err)
	}

	var cd CharacterData
	if err := json.Unmarshal(data, &cd); err != nil {
		return nil, fmt.Errorf("parse character %s: %w", key, err)
	}
	return &cd, nil
}

// SaveCharacter persists a character's layouts to disk atomically.
func (s *Storage) SaveCharacter(key string, cd *CharacterData) error {
	return s.atomicWriteJSON(s.characterPath(key), cd)
}

// DeleteCharacter removes a character's save file. Missing files are not an
// error.
func (s *Storage) DeleteCharacter(key string) error {
	err := os.Remove(s.characterPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete character %s: %w", key, err)
	}
	return nil
}

// ListCharacters returns the keys of every saved character, sorted.
func (s *Storage) ListCharacters() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "characters"))
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Storage) characterPath(key string) string {
	return filepath.Join(s.dir, "characters", sanitizeKey(key)+".json")
}

// sanitizeKey keeps character keys usable as file names. The exporter already
// writes hyphenated name-realm keys; this only guards against separators.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, key)
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp
// file + rename.
func (s *Storage) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
