// Package di is the dependency injection container the kernel bootstraps.
//
// It holds two kinds of entries. Services are named factories, optionally
// singletons, resolved with circular dependency detection. Classes are
// constructors registered under a fully-qualified class identifier such as
// `app\model\User`; providers bind abstract identifiers onto them and
// InvokeClass instantiates them with explicit arguments.
package di

import (
	"context"
	"fmt"
	"sync"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
)

// maxBindDepth bounds alias chains created by provider binds.
const maxBindDepth = 32

// dependencyResolver is a wrapper around Container that prevents deadlocks
type dependencyResolver struct {
	container *Container
	resolving map[string]bool
}

// Get retrieves a service using the safe resolver
func (dr *dependencyResolver) Get(name string) (interface{}, error) {
	return dr.container.getWithResolver(name, dr.resolving)
}

// Container manages dependency injection for the application
type Container struct {
	services   map[string]serviceDefinition
	singletons map[string]interface{}
	factories  map[string]FactoryFunc
	creating   map[string]*sync.WaitGroup // Track services being created
	order      []string                   // registration order, used for shutdown
	classes    map[string]Constructor
	binds      map[string]string
	mu         sync.RWMutex
}

// serviceDefinition records how a service is created.
type serviceDefinition struct {
	name      string
	singleton bool
}

// FactoryFunc creates a service instance using the dependency resolver
type FactoryFunc func(resolver DependencyResolver) (interface{}, error)

// Constructor instantiates a registered class with caller supplied arguments.
type Constructor func(c *Container, args ...interface{}) (interface{}, error)

// DependencyResolver resolves the services a factory depends on, detecting
// circular dependencies.
type DependencyResolver interface {
	Get(name string) (interface{}, error)
}

// New creates a new dependency injection container
func New() *Container {
	return &Container{
		services:   make(map[string]serviceDefinition),
		singletons: make(map[string]interface{}),
		factories:  make(map[string]FactoryFunc),
		creating:   make(map[string]*sync.WaitGroup),
		classes:    make(map[string]Constructor),
		binds:      make(map[string]string),
	}
}

// Register registers a service whose factory runs on every Get.
func (c *Container) Register(name string, factory FactoryFunc) {
	c.register(name, factory, false)
}

// RegisterSingleton registers a service whose factory runs once.
func (c *Container) RegisterSingleton(name string, factory FactoryFunc) {
	c.register(name, factory, true)
}

func (c *Container) register(name string, factory FactoryFunc, singleton bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[name]; !exists {
		c.order = append(c.order, name)
	}
	c.services[name] = serviceDefinition{name: name, singleton: singleton}
	c.factories[name] = factory
	delete(c.singletons, name)
}

// RegisterInstance registers an existing instance as a singleton
func (c *Container) RegisterInstance(name string, instance interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.services[name]; !exists {
		c.order = append(c.order, name)
	}
	c.singletons[name] = instance
	c.services[name] = serviceDefinition{name: name, singleton: true}
}

// Get retrieves a service from the container
func (c *Container) Get(name string) (interface{}, error) {
	return c.getWithResolver(name, make(map[string]bool))
}

// getWithResolver retrieves a service with circular dependency detection
func (c *Container) getWithResolver(
	name string,
	resolving map[string]bool,
) (interface{}, error) {
	if resolving[name] {
		return nil, fmt.Errorf("circular dependency detected for service '%s'", name)
	}

	c.mu.RLock()
	definition, exists := c.services[name]
	factory := c.factories[name]
	c.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("service '%s' not registered", name)
	}

	if !definition.singleton {
		resolving[name] = true
		instance, err := c.createInstanceSafely(factory, resolving)
		delete(resolving, name)

		if err != nil {
			return nil, fmt.Errorf("failed to create service '%s': %w", name, err)
		}
		return instance, nil
	}

	c.mu.Lock()
	if instance, exists := c.singletons[name]; exists {
		c.mu.Unlock()
		return instance, nil
	}

	// Another goroutine is creating this singleton; wait for it.
	if wg, creating := c.creating[name]; creating {
		c.mu.Unlock()
		wg.Wait()
		c.mu.RLock()
		instance, ok := c.singletons[name]
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("failed to create singleton service '%s'", name)
		}
		return instance, nil
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.creating[name] = wg
	resolving[name] = true
	c.mu.Unlock()

	// Create the singleton instance without holding any locks
	instance, err := c.createInstanceSafely(factory, resolving)
	delete(resolving, name)

	c.mu.Lock()
	delete(c.creating, name)
	if err == nil {
		c.singletons[name] = instance
	}
	c.mu.Unlock()
	wg.Done()

	if err != nil {
		return nil, fmt.Errorf("failed to create singleton service '%s': %w", name, err)
	}
	return instance, nil
}

// createInstanceSafely creates an instance with dependency resolution
func (c *Container) createInstanceSafely(
	factory FactoryFunc,
	resolving map[string]bool,
) (interface{}, error) {
	if factory == nil {
		return nil, fmt.Errorf("factory is nil")
	}

	resolver := &dependencyResolver{
		container: c,
		resolving: resolving,
	}

	return factory(resolver)
}

// Has checks if a service is registered
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.services[name]
	return exists
}

// RegisterClass registers a constructor under a fully-qualified class identifier.
func (c *Container) RegisterClass(class string, ctor Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[class] = ctor
}

// Bind records abstract -> concrete identifier mappings, as declared by
// provider files. Later binds for the same abstract replace earlier ones.
func (c *Container) Bind(binds map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for abstract, concrete := range binds {
		c.binds[abstract] = concrete
	}
}

// Binds returns a copy of the current bind table.
func (c *Container) Binds() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.binds))
	for k, v := range c.binds {
		out[k] = v
	}
	return out
}

// resolveBind follows the bind table from abstract to its final concrete identifier.
func (c *Container) resolveBind(abstract string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	current := abstract
	for i := 0; i < maxBindDepth; i++ {
		next, ok := c.binds[current]
		if !ok || next == current {
			return current
		}
		current = next
	}
	return current
}

// ClassExists reports whether class, after following binds, has a constructor.
func (c *Container) ClassExists(class string) bool {
	resolved := c.resolveBind(class)
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.classes[resolved]
	return ok
}

// InvokeClass instantiates class with args. It fails with a ClassNotFound
// error carrying the requested identifier when no constructor is registered.
func (c *Container) InvokeClass(class string, args ...interface{}) (interface{}, error) {
	resolved := c.resolveBind(class)

	c.mu.RLock()
	ctor, ok := c.classes[resolved]
	c.mu.RUnlock()

	if !ok {
		return nil, kerrors.NewClassNotFoundError(class)
	}

	instance, err := ctor(c, args...)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", resolved, err)
	}
	return instance, nil
}

// Make resolves abstract through the bind table and returns the named
// service if one is registered, otherwise a new instance of the class.
func (c *Container) Make(abstract string, args ...interface{}) (interface{}, error) {
	resolved := c.resolveBind(abstract)
	if c.Has(resolved) {
		return c.Get(resolved)
	}
	return c.InvokeClass(resolved, args...)
}

// Shutdown gracefully shuts down all singleton services, in reverse registration
// order. Singletons built by a factory are dropped and rebuilt on the next Get;
// registered instances stay.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	for i := len(c.order) - 1; i >= 0; i-- {
		serviceName := c.order[i]
		instance, exists := c.singletons[serviceName]
		if !exists {
			continue
		}
		if shutdownable, ok := instance.(interface{ Shutdown(context.Context) error }); ok {
			if err := shutdownable.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown %s: %w", serviceName, err))
			}
		}
	}

	for name := range c.singletons {
		if c.factories[name] != nil {
			delete(c.singletons, name)
		}
	}

	return kerrors.CombineErrors(errs...)
}
