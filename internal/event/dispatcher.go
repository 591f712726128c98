// Package event implements the application event dispatcher.
//
// Listeners and subscribers are registered in code under a name. Event
// manifests then refer to them by that name, so an application's event file
// only ever wires together capabilities the binary already contains.
package event

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
)

// Well-known lifecycle events.
const (
	AppInit = "AppInit"
	HttpRun = "HttpRun"
	HttpEnd = "HttpEnd"
)

// ErrStopPropagation may be returned by a listener to skip the remaining
// listeners of the same event. Trigger does not report it as a failure.
var ErrStopPropagation = errors.New("event: stop propagation")

// Event is what a listener receives.
type Event struct {
	Name      string
	Payload   interface{}
	Timestamp time.Time
}

// Listener handles a single event.
type Listener func(ctx context.Context, e Event) error

// Subscriber registers several listeners at once.
type Subscriber interface {
	Subscribe(d *Dispatcher)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(d *Dispatcher)

// Subscribe calls f(d).
func (f SubscriberFunc) Subscribe(d *Dispatcher) { f(d) }

// listenerRef is either a resolved listener or a name looked up at trigger time.
type listenerRef struct {
	name string
	fn   Listener
}

// Dispatcher stores event aliases, listeners and subscribers.
type Dispatcher struct {
	mu          sync.RWMutex
	bind        map[string]string
	listeners   map[string][]listenerRef
	named       map[string]Listener
	subscribers map[string]Subscriber
	subscribed  []string
	enabled     bool
}

// NewDispatcher creates an empty, enabled dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		bind:        make(map[string]string),
		listeners:   make(map[string][]listenerRef),
		named:       make(map[string]Listener),
		subscribers: make(map[string]Subscriber),
		enabled:     true,
	}
}

// RegisterListener makes fn available to manifests under name.
func (d *Dispatcher) RegisterListener(name string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.named[name] = fn
}

// RegisterSubscriber makes s available to manifests under name.
func (d *Dispatcher) RegisterSubscriber(name string, s Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[name] = s
}

// Bind records event aliases. Triggering an alias dispatches to the
// listeners of the event it is bound to.
func (d *Dispatcher) Bind(aliases map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for alias, target := range aliases {
		d.bind[alias] = target
	}
}

// Listen attaches fn to event.
func (d *Dispatcher) Listen(event string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	event = d.resolveLocked(event)
	d.listeners[event] = append(d.listeners[event], listenerRef{fn: fn})
}

// ListenEvents attaches named listeners per event. Within an event the
// listeners keep the order they are given in; resolution happens on trigger.
func (d *Dispatcher) ListenEvents(events map[string][]string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(events))
	for name := range events {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		event := d.resolveLocked(name)
		for _, listener := range events[name] {
			d.listeners[event] = append(d.listeners[event], listenerRef{name: listener})
		}
	}
}

// Subscribe runs the named subscribers against the dispatcher, in order.
func (d *Dispatcher) Subscribe(names []string) error {
	for _, name := range names {
		d.mu.RLock()
		s, ok := d.subscribers[name]
		d.mu.RUnlock()

		if !ok {
			return kerrors.NewValidationError(kerrors.ErrCodeUnknownListener,
				fmt.Sprintf("event subscriber %q is not registered", name)).
				WithContext("subscriber", name)
		}
		s.Subscribe(d)

		d.mu.Lock()
		d.subscribed = append(d.subscribed, name)
		d.mu.Unlock()
	}
	return nil
}

// WithEvent switches dispatching on or off. A disabled dispatcher still
// accepts registrations but Trigger does nothing.
func (d *Dispatcher) WithEvent(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// Enabled reports whether Trigger dispatches.
func (d *Dispatcher) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// Trigger dispatches event to its listeners in registration order. The
// first listener error stops dispatch and is returned.
func (d *Dispatcher) Trigger(ctx context.Context, event string, payload interface{}) error {
	d.mu.RLock()
	if !d.enabled {
		d.mu.RUnlock()
		return nil
	}
	name := d.resolveLocked(event)
	refs := make([]listenerRef, len(d.listeners[name]))
	copy(refs, d.listeners[name])
	d.mu.RUnlock()

	e := Event{Name: name, Payload: payload, Timestamp: time.Now()}

	for _, ref := range refs {
		fn, err := d.listenerFor(ref)
		if err != nil {
			return err
		}
		if err := fn(ctx, e); err != nil {
			if errors.Is(err, ErrStopPropagation) {
				return nil
			}
			return fmt.Errorf("event %s: %w", name, err)
		}
	}
	return nil
}

func (d *Dispatcher) listenerFor(ref listenerRef) (Listener, error) {
	if ref.fn != nil {
		return ref.fn, nil
	}
	d.mu.RLock()
	fn, ok := d.named[ref.name]
	d.mu.RUnlock()
	if !ok {
		return nil, kerrors.NewValidationError(kerrors.ErrCodeUnknownListener,
			fmt.Sprintf("event listener %q is not registered", ref.name)).
			WithContext("listener", ref.name)
	}
	return fn, nil
}

// resolveLocked follows a single alias hop. Callers hold d.mu.
func (d *Dispatcher) resolveLocked(event string) string {
	if target, ok := d.bind[event]; ok && target != "" {
		return target
	}
	return event
}

// Snapshot returns the manifest that reproduces the dispatcher's
// name-based wiring. Listeners attached with Listen are not included.
func (d *Dispatcher) Snapshot() Manifest {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m := Manifest{
		Bind:      make(map[string]string, len(d.bind)),
		Listen:    make(map[string][]string),
		Subscribe: append([]string(nil), d.subscribed...),
	}
	for k, v := range d.bind {
		m.Bind[k] = v
	}
	for event, refs := range d.listeners {
		for _, ref := range refs {
			if ref.name != "" {
				m.Listen[event] = append(m.Listen[event], ref.name)
			}
		}
	}
	return m
}
