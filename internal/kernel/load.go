package kernel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
	"github.com/conneroisu/thinkgo/internal/event"
	"github.com/conneroisu/thinkgo/internal/logging"
	"github.com/conneroisu/thinkgo/internal/output"
)

// ErrAlreadyInitialized matches, via errors.Is, the error Initialize returns
// on an App that has already been bootstrapped.
var ErrAlreadyInitialized = kerrors.NewStateError(kerrors.ErrCodeAlreadyInitialized, "application already initialized")

// included records common files whose hooks completed in this process.
var (
	includeMu sync.Mutex
	included  = make(map[string]struct{})
)

// timezoneMu serialises writes to time.Local.
var timezoneMu sync.Mutex

// commonManifest is the content of a common file.
type commonManifest struct {
	Hooks []string `yaml:"hooks"`
}

// middlewareManifest is the content of a middleware file.
type middlewareManifest struct {
	Middleware []string `yaml:"middleware"`
}

// Parse resolves the application name and paths without loading anything.
// Initialize continues from a parsed App.
func (a *App) Parse(ctx context.Context) error {
	if a.state != StateUninitialized {
		return kerrors.NewStateError(kerrors.ErrCodeAlreadyInitialized, "application already parsed").
			WithContext("state", a.state.String())
	}
	return a.parse(ctx)
}

// Initialize bootstraps the App: parse, then Init. It may run once.
func (a *App) Initialize(ctx context.Context) (*App, error) {
	if a.state > StateParsed {
		return a, kerrors.NewStateError(kerrors.ErrCodeAlreadyInitialized, "application already initialized").
			WithContext("state", a.state.String())
	}

	a.beginTime = time.Now()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	a.beginMem = mem.HeapAlloc

	op := logging.StartOperation(a.logger, "initialize")

	var err error
	if a.state == StateUninitialized {
		err = a.parse(ctx)
	}
	if err == nil {
		err = a.Init(ctx)
	}

	duration := time.Since(a.beginTime)
	a.metrics.ObserveBootstrap(a.MetricsLabel(), duration, err)
	if err != nil {
		op.EndWithError(ctx, err)
		return a, err
	}
	op.End(ctx)
	return a, nil
}

// Init loads the application (from the init cache when present), installs
// the exception handler, fires AppInit and applies debug and timezone settings.
func (a *App) Init(ctx context.Context) error {
	cacheFile := a.InitCachePath()
	if isFile(cacheFile) {
		if err := a.loadInitCache(ctx, cacheFile); err != nil {
			return err
		}
		a.fromCache = true
		a.metrics.InitCacheHit()
	} else if err := a.load(ctx); err != nil {
		return err
	}
	a.state = StateLoaded

	if err := a.installExceptionHandler(); err != nil {
		return err
	}

	a.events.WithEvent(a.withEvent)

	if err := a.events.Trigger(ctx, event.AppInit, a); err != nil {
		return err
	}
	if a.withEvent {
		a.metrics.EventTriggered(event.AppInit)
	}

	a.debugModeInit()

	if err := a.applyTimezone(); err != nil {
		return err
	}

	a.state = StateReady
	a.logger.Debug(ctx, "Application ready",
		"app", a.name,
		"debug", a.debug,
		"from_cache", a.fromCache,
	)
	return nil
}

// load wires events, common hooks, helpers, middleware, providers and
// configuration, in that order.
func (a *App) load(ctx context.Context) error {
	var eventFiles, commonFiles, middlewareFiles, providerFiles []string
	if a.multi {
		eventFiles = append(eventFiles, a.basePath+"event"+a.configExt)
		commonFiles = append(commonFiles, a.basePath+"common"+a.configExt)
		middlewareFiles = append(middlewareFiles, a.basePath+"middleware"+a.configExt)
		providerFiles = append(providerFiles, a.basePath+"provider"+a.configExt)
	}
	eventFiles = append(eventFiles, a.appPath+"event"+a.configExt)
	commonFiles = append(commonFiles, a.appPath+"common"+a.configExt)
	middlewareFiles = append(middlewareFiles, a.appPath+"middleware"+a.configExt)
	providerFiles = append(providerFiles, a.appPath+"provider"+a.configExt)

	for _, file := range dedupe(eventFiles) {
		data, found, err := readFile(file)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		m, err := event.DecodeManifest(data)
		if err != nil {
			return kerrors.WrapConfig(err, kerrors.ErrCodeManifestInvalid, file)
		}
		if m.IsZero() {
			continue
		}
		if err := a.loadEvent(m); err != nil {
			return kerrors.Wrap(err, kerrors.ErrorTypeConfig, kerrors.ErrCodeManifestInvalid, "cannot register events").WithPath(file)
		}
		a.logger.Debug(ctx, "Event manifest loaded", "file", file)
	}

	for _, file := range dedupe(commonFiles) {
		if err := a.includeCommon(ctx, file); err != nil {
			return err
		}
	}

	for _, helper := range a.helpers {
		if err := helper(ctx, a); err != nil {
			return fmt.Errorf("framework helper: %w", err)
		}
	}

	for _, file := range dedupe(middlewareFiles) {
		var m middlewareManifest
		found, err := readManifest(file, &m)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := a.middleware.Import(m.Middleware); err != nil {
			return kerrors.Wrap(err, kerrors.ErrorTypeConfig, kerrors.ErrCodeManifestInvalid, "cannot import middleware").WithPath(file)
		}
		a.logger.Debug(ctx, "Middleware imported", "file", file, "count", len(m.Middleware))
	}

	for _, file := range dedupe(providerFiles) {
		var binds map[string]string
		found, err := readManifest(file, &binds)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		a.container.Bind(binds)
		a.logger.Debug(ctx, "Providers bound", "file", file, "count", len(binds))
	}

	return a.loadConfigFiles(ctx)
}

// loadConfigFiles loads every config file, global first, then the
// application's own. Later files win key by key.
func (a *App) loadConfigFiles(ctx context.Context) error {
	var files []string
	if isDir(a.configPath) {
		matches, err := filepath.Glob(a.configPath + "*" + a.configExt)
		if err != nil {
			return kerrors.WrapIO(err, kerrors.ErrCodeConfigLoad, a.configPath)
		}
		files = append(files, matches...)
	}

	if a.multi {
		dir := ""
		if isDir(a.appPath + "config") {
			dir = a.appPath + "config" + string(filepath.Separator)
		} else if isDir(a.configPath + a.name) {
			dir = a.configPath + a.name + string(filepath.Separator)
		}
		if dir != "" {
			matches, err := filepath.Glob(dir + "*" + a.configExt)
			if err != nil {
				return kerrors.WrapIO(err, kerrors.ErrCodeConfigLoad, dir)
			}
			files = append(files, matches...)
		}
	}

	for _, file := range files {
		if !isFile(file) {
			continue
		}
		if err := a.config.Load(file, ""); err != nil {
			return kerrors.WrapConfig(err, kerrors.ErrCodeConfigLoad, file)
		}
		a.metrics.ConfigFileLoaded()
		a.logger.Debug(ctx, "Config file loaded", "file", file)
	}
	return nil
}

// loadEvent registers an event manifest with the dispatcher.
func (a *App) loadEvent(m event.Manifest) error {
	return event.Register(a.events, m)
}

// includeCommon runs the hooks a common file lists. Each file's hooks run
// at most once per process.
func (a *App) includeCommon(ctx context.Context, file string) error {
	var m commonManifest
	found, err := readManifest(file, &m)
	if err != nil || !found {
		return err
	}

	hooks, err := a.lookupHooks(file, m.Hooks)
	if err != nil {
		return err
	}
	a.common = append(a.common, CommonHooks{File: file, Hooks: m.Hooks})
	return a.runOnce(ctx, file, m.Hooks, hooks)
}

// lookupHooks resolves hook names listed in source.
func (a *App) lookupHooks(source string, names []string) ([]Hook, error) {
	hooks := make([]Hook, 0, len(names))
	for _, name := range names {
		h, ok := a.hooks[name]
		if !ok {
			return nil, kerrors.NewValidationError(kerrors.ErrCodeUnknownHook,
				fmt.Sprintf("hook %q is not registered", name)).WithPath(source)
		}
		hooks = append(hooks, h)
	}
	return hooks, nil
}

// runOnce runs hooks for the common file key unless an earlier run of it
// completed in this process. A failed run is not recorded, so the next App
// retries it. Hooks must not bootstrap another App.
func (a *App) runOnce(ctx context.Context, key string, names []string, hooks []Hook) error {
	includeMu.Lock()
	defer includeMu.Unlock()

	if _, done := included[key]; done {
		return nil
	}
	if err := a.runHooks(ctx, names, hooks); err != nil {
		return err
	}
	included[key] = struct{}{}
	return nil
}

func (a *App) runHooks(ctx context.Context, names []string, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx, a); err != nil {
			return fmt.Errorf("hook %s: %w", names[i], err)
		}
		a.logger.Debug(ctx, "Hook ran", "hook", names[i])
	}
	return nil
}

// debugModeInit settles debug mode and, when it is on for an interactive
// run, swaps in a fresh output buffer that keeps earlier output.
func (a *App) debugModeInit() {
	if !a.debug {
		a.debug = a.env.Bool("app_debug", false)
	}

	if !a.debug {
		a.displayErrors = false
		return
	}
	a.displayErrors = true
	if !a.cli {
		output.Swap(a.output)
	}
}

// applyTimezone loads app.default_timezone and, unless told otherwise,
// makes it the process default.
func (a *App) applyTimezone() error {
	name := a.config.String("app.default_timezone", DefaultTimezone)
	loc, err := time.LoadLocation(name)
	if err != nil {
		return kerrors.NewConfigError(kerrors.ErrCodeConfigInvalid, "invalid default timezone "+name, err)
	}
	a.location = loc

	if !a.keepTimezone {
		timezoneMu.Lock()
		if time.Local.String() != loc.String() {
			time.Local = loc
		}
		timezoneMu.Unlock()
	}
	return nil
}

// readFile returns the content of file. A missing file reports
// found == false without error.
func readFile(file string) ([]byte, bool, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kerrors.WrapIO(err, kerrors.ErrCodeConfigLoad, file)
	}
	return data, true, nil
}

// readManifest decodes a YAML (or JSON) manifest into out. Missing files
// report found == false without error.
func readManifest(file string, out interface{}) (bool, error) {
	data, found, err := readFile(file)
	if err != nil || !found {
		return false, err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, kerrors.WrapConfig(err, kerrors.ErrCodeManifestInvalid, file)
	}
	return true, nil
}

// dedupe drops repeated paths, which occur when the base and application
// directories coincide.
func dedupe(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := files[:0]
	for _, f := range files {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
