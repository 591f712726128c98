package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Store is the application configuration repository. Every loaded file
// becomes a section named after the file; loading a section that already
// exists merges into it, later values winning key by key.
type Store struct {
	mu    sync.RWMutex
	v     *viper.Viper
	files []string
}

// NewStore creates an empty configuration store.
func NewStore() *Store {
	return &Store{v: viper.New()}
}

// Load parses file according to its extension and merges it into the
// section name. An empty name uses the file's base name without extension.
func (s *Store) Load(file, name string) error {
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	values, err := ReadFile(file)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.MergeConfigMap(map[string]interface{}{name: values}); err != nil {
		return fmt.Errorf("merge config %s: %w", file, err)
	}
	s.files = append(s.files, file)
	return nil
}

// ReadFile parses a single configuration file into a map. The format is
// chosen from the file extension.
func ReadFile(file string) (map[string]interface{}, error) {
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", file, err)
	}
	return v.AllSettings(), nil
}

// Set merges values into the section name.
func (s *Store) Set(name string, values map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// MergeConfigMap only fails when it cannot read its input, which a map
	// never triggers.
	_ = s.v.MergeConfigMap(map[string]interface{}{name: values})
}

// Has reports whether key (dot notation, e.g. "app.default_timezone") is set.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.IsSet(key)
}

// Get returns the raw value for key or nil.
func (s *Store) Get(key string) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.Get(key)
}

// String returns the value for key as a string, or def when unset or empty.
func (s *Store) String(key, def string) string {
	v := s.Get(key)
	if v == nil {
		return def
	}
	str, err := cast.ToStringE(v)
	if err != nil || str == "" {
		return def
	}
	return str
}

// Bool returns the value for key as a boolean, or def when unset.
func (s *Store) Bool(key string, def bool) bool {
	v := s.Get(key)
	if v == nil {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// All returns a copy of the whole configuration tree.
func (s *Store) All() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllSettings()
}

// Replace discards the current tree and installs values. Used when a
// configuration snapshot is restored from the init cache.
func (s *Store) Replace(values map[string]interface{}) {
	v := viper.New()
	_ = v.MergeConfigMap(values)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	s.files = nil
}

// Files returns the files loaded so far, in load order.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}
