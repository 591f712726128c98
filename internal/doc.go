// Package internal contains the implementation packages for thinkgo.
//
// # Package Organization
//
//   - kernel: the bootstrap kernel. Resolves which application serves a
//     request, computes the project paths, loads manifests and config, and
//     writes or reads the init cache.
//   - config: process settings (viper) and the dot-keyed config store
//   - env: the environment store fed from .env files and the kernel's paths
//   - event: event bindings, listeners and subscribers
//   - middleware: the named middleware registry and the request chain
//   - di: the dependency injection container
//   - naming: snake_case and camelCase conversion for class names
//   - request: request adapters for net/http and fixed paths
//   - output: buffered response output used in debug mode
//   - errors: typed kernel errors and the default exception handler
//   - logging: structured logging
//   - metrics: Prometheus collectors for bootstrap and HTTP serving
//   - watcher: file watching that invalidates the init cache
//   - version: build information
//   - testutils: shared test fixtures
//
// # Bootstrap Flow
//
// A kernel.App moves from Uninitialized to Parsed, Loaded and Ready:
//
//	app := kernel.New(opts)
//	if _, err := app.Initialize(ctx); err != nil {
//		app.HandleError(ctx, err)
//	}
//
// Parse resolves the application name and paths only. Initialize parses
// when needed, then loads from the init cache or from the project files.
package internal
