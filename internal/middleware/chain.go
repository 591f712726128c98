// Package middleware holds the application's HTTP middleware stack.
//
// Middleware is registered in code under a name; middleware files list the
// names to import, in the order they should run.
package middleware

import (
	"fmt"
	"net/http"
	"sync"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
)

// Middleware represents a single middleware function
type Middleware func(http.Handler) http.Handler

// Chain is a registry of named middleware plus the ordered stack imported
// from it.
//
// Execution order: the first middleware in the stack is the outermost
// wrapper, so requests flow through the stack front to back and responses
// back to front.
type Chain struct {
	mu        sync.RWMutex
	available map[string]Middleware
	stack     []entry
}

type entry struct {
	name string
	mw   Middleware
}

// NewChain creates an empty chain
func NewChain() *Chain {
	return &Chain{
		available: make(map[string]Middleware),
		stack:     make([]entry, 0, 8),
	}
}

// Register makes mw importable under name. Registering a name twice replaces it.
func (c *Chain) Register(name string, mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available[name] = mw
}

// Registered reports whether name can be imported.
func (c *Chain) Registered(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.available[name]
	return ok
}

// Import appends the named middleware to the stack. Either every name is
// known and all are appended, or nothing changes.
func (c *Chain) Import(names []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := make([]entry, 0, len(names))
	for _, name := range names {
		mw, ok := c.available[name]
		if !ok {
			return kerrors.NewValidationError(kerrors.ErrCodeUnknownMiddleware,
				fmt.Sprintf("middleware %q is not registered", name)).
				WithContext("middleware", name)
		}
		resolved = append(resolved, entry{name: name, mw: mw})
	}
	c.stack = append(c.stack, resolved...)
	return nil
}

// Add appends an anonymous middleware to the stack
func (c *Chain) Add(mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = append(c.stack, entry{mw: mw})
}

// Names returns the names of the imported middleware in stack order.
// Anonymous entries are omitted.
func (c *Chain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.stack))
	for _, e := range c.stack {
		if e.name != "" {
			names = append(names, e.name)
		}
	}
	return names
}

// Count returns the number of middlewares in the stack
func (c *Chain) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stack)
}

// Reset clears the stack. Registrations are kept.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = c.stack[:0]
}

// Apply wraps handler with the whole stack.
//
// Example with stack [A, B, C] and handler H: A(B(C(H))).
func (c *Chain) Apply(handler http.Handler) http.Handler {
	if handler == nil {
		panic("middleware.Chain.Apply: handler cannot be nil")
	}

	c.mu.RLock()
	stack := make([]entry, len(c.stack))
	copy(stack, c.stack)
	c.mu.RUnlock()

	wrapped := handler
	for i := len(stack) - 1; i >= 0; i-- {
		wrapped = stack[i].mw(wrapped)
		if wrapped == nil {
			panic(fmt.Sprintf("middleware.Chain.Apply: middleware at index %d returned nil handler", i))
		}
	}
	return wrapped
}

// Clone creates a copy of the chain sharing no mutable state
func (c *Chain) Clone() *Chain {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := NewChain()
	for name, mw := range c.available {
		clone.available[name] = mw
	}
	clone.stack = append(clone.stack, c.stack...)
	return clone
}
