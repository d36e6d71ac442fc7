package settings

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// Store provides persistence for the flat settings record.
type Store interface {
	// Load loads the record from its backing medium
	Load() error

	// Save writes the record to its backing medium
	Save() error

	// Get returns the stored values for keys. Absent keys are omitted.
	// With no keys, every stored value is returned.
	Get(keys ...string) (map[string]any, error)

	// Set merges values into the record
	Set(values map[string]any) error
}

// FileStore implements Store using a JSON file.
type FileStore struct {
	path     string
	data     map[string]any
	mu       sync.RWMutex
	version  string
	modified bool
}

type fileFormat struct {
	Version string         `json:"version"`
	Values  map[string]any `json:"values"`
}

// NewFileStore creates a file-backed store.
// If path is empty, defaults to ~/.playtabq/settings.json
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".playtabq", "settings.json")
	}

	store := &FileStore{
		path:    path,
		data:    make(map[string]any),
		version: "1.0",
	}

	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}

	return store, nil
}

// Load reads the settings file. A missing file yields an empty record.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]any)
			return nil
		}
		return fmt.Errorf("failed to open settings file: %w", err)
	}
	defer file.Close()

	var content fileFormat
	if err := json.NewDecoder(file).Decode(&content); err != nil {
		return fmt.Errorf("failed to decode settings file: %w", err)
	}

	if content.Version != "" {
		s.version = content.Version
	}
	s.data = content.Values
	if s.data == nil {
		s.data = make(map[string]any)
	}
	s.modified = false
	return nil
}

// Save writes the settings file atomically through a temp file and rename.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileFormat{Version: s.version, Values: s.data}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.modified = false
	return nil
}

// Get returns copies of the requested values.
func (s *FileStore) Get(keys ...string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(keys) == 0 {
		return maps.Clone(s.data), nil
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set merges values into the in-memory record. Call Save to persist.
func (s *FileStore) Set(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.data[k] = v
	}
	s.modified = true
	return nil
}

// IsModified returns true if the store has unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// MemoryStore is a Store without a backing file.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]any)}
}

func (m *MemoryStore) Load() error { return nil }
func (m *MemoryStore) Save() error { return nil }

func (m *MemoryStore) Get(keys ...string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(keys) == 0 {
		return maps.Clone(m.data), nil
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.data, values)
	return nil
}
