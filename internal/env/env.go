// Package env holds the environment key-value store shared by the kernel and
// its collaborators. Values come from a `.env` file, from explicit Set calls
// made while the kernel resolves its paths, and finally from the process
// environment.
//
// Keys are case-insensitive. The store is populated while the kernel parses
// its inputs and is expected to be read-only once initialisation completes.
package env

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Env is a concurrency-safe key-value store.
type Env struct {
	mu     sync.RWMutex
	data   map[string]string
	lookup func(string) (string, bool)
}

// New creates an empty store that falls back to the process environment.
func New() *Env {
	return &Env{
		data:   make(map[string]string),
		lookup: os.LookupEnv,
	}
}

// NewIsolated creates a store that never consults the process environment.
func NewIsolated() *Env {
	e := New()
	e.lookup = func(string) (string, bool) { return "", false }
	return e
}

func normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Load reads a dotenv file and merges its entries into the store. Entries
// already present are overwritten.
func (e *Env) Load(file string) error {
	values, err := godotenv.Read(file)
	if err != nil {
		return fmt.Errorf("load env file %s: %w", file, err)
	}
	e.SetMany(values)
	return nil
}

// Set stores a single value.
func (e *Env) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data[normalize(key)] = value
}

// SetMany stores every entry of values.
func (e *Env) SetMany(values map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range values {
		e.data[normalize(k)] = v
	}
}

// Lookup returns the value for key and whether it was found.
func (e *Env) Lookup(key string) (string, bool) {
	k := normalize(key)

	e.mu.RLock()
	v, ok := e.data[k]
	e.mu.RUnlock()
	if ok {
		return v, true
	}

	return e.lookup(k)
}

// Get returns the value for key or def when the key is absent.
func (e *Env) Get(key, def string) string {
	if v, ok := e.Lookup(key); ok {
		return v
	}
	return def
}

// Bool returns the value for key parsed as a boolean. Unparseable values and
// absent keys yield def.
func (e *Env) Bool(key string, def bool) bool {
	v, ok := e.Lookup(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
