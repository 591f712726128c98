package kernel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
	"github.com/conneroisu/thinkgo/internal/event"
)

// InitCacheFile is the name of the init cache inside the runtime directory.
const InitCacheFile = "init.yaml"

// InitCache is a snapshot of everything load wires up. When present in the
// runtime directory it replaces the discovery of event, common,
// middleware, provider and config files.
type InitCache struct {
	Version    string                 `yaml:"version"`
	App        string                 `yaml:"app"`
	Events     event.Manifest         `yaml:"events"`
	Common     []CommonHooks          `yaml:"common,omitempty"`
	Middleware []string               `yaml:"middleware,omitempty"`
	Provider   map[string]string      `yaml:"provider,omitempty"`
	Config     map[string]interface{} `yaml:"config,omitempty"`
}

// CommonHooks is a common file and the hooks it lists. Hooks replayed from
// the init cache share the once-per-process record of that file.
type CommonHooks struct {
	File  string   `yaml:"file"`
	Hooks []string `yaml:"hooks"`
}

// InitCachePath returns where the init cache lives. It is empty before the
// paths are resolved.
func (a *App) InitCachePath() string {
	if a.runtimePath == "" {
		return ""
	}
	return a.runtimePath + InitCacheFile
}

// Snapshot captures the loaded state as an InitCache.
func (a *App) Snapshot() (*InitCache, error) {
	if a.state != StateReady {
		return nil, kerrors.NewStateError(kerrors.ErrCodeNotInitialized, "application is not initialized").
			WithContext("state", a.state.String())
	}
	return &InitCache{
		Version:    Version,
		App:        a.name,
		Events:     a.events.Snapshot(),
		Common:     append([]CommonHooks(nil), a.common...),
		Middleware: a.middleware.Names(),
		Provider:   a.container.Binds(),
		Config:     a.config.All(),
	}, nil
}

// Optimize writes the init cache for the initialized App and returns its path.
func (a *App) Optimize(ctx context.Context) (string, error) {
	snap, err := a.Snapshot()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return "", kerrors.NewInternalError(kerrors.ErrCodeCacheWrite, "cannot encode init cache", err)
	}

	if err := os.MkdirAll(a.runtimePath, 0o755); err != nil {
		return "", kerrors.WrapIO(err, kerrors.ErrCodeCacheWrite, a.runtimePath)
	}

	file := a.InitCachePath()
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", kerrors.WrapIO(err, kerrors.ErrCodeCacheWrite, tmp)
	}
	if err := os.Rename(tmp, file); err != nil {
		_ = os.Remove(tmp)
		return "", kerrors.WrapIO(err, kerrors.ErrCodeCacheWrite, file)
	}

	a.logger.Info(ctx, "Init cache written", "file", file)
	return file, nil
}

// ClearCache removes the init cache. It reports whether a file was removed.
func (a *App) ClearCache(ctx context.Context) (bool, error) {
	file := a.InitCachePath()
	if file == "" {
		return false, kerrors.NewStateError(kerrors.ErrCodeNotInitialized, "application paths are not resolved")
	}

	err := os.Remove(file)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, kerrors.WrapIO(err, kerrors.ErrCodeCacheWrite, file)
	}

	a.logger.Info(ctx, "Init cache removed", "file", file)
	return true, nil
}

// ClearCaches removes the App's init cache and, under multi-app layout,
// the init cache of every application in the runtime directory. It returns
// the removed files.
func (a *App) ClearCaches(ctx context.Context) ([]string, error) {
	file := a.InitCachePath()
	if file == "" {
		return nil, kerrors.NewStateError(kerrors.ErrCodeNotInitialized, "application paths are not resolved")
	}

	files := []string{file}
	if a.multi {
		pattern := filepath.Join(a.rootPath+"runtime", "*", InitCacheFile)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, kerrors.WrapIO(err, kerrors.ErrCodeCacheWrite, pattern)
		}
		files = append(files, matches...)
	}

	var removed []string
	for _, f := range dedupe(files) {
		err := os.Remove(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, kerrors.WrapIO(err, kerrors.ErrCodeCacheWrite, f)
		}
		a.logger.Info(ctx, "Init cache removed", "file", f)
		removed = append(removed, f)
	}
	return removed, nil
}

// loadInitCache restores a snapshot written by Optimize.
func (a *App) loadInitCache(ctx context.Context, file string) error {
	var snap InitCache
	if _, err := readManifest(file, &snap); err != nil {
		return err
	}

	if !snap.Events.IsZero() {
		if err := a.loadEvent(snap.Events); err != nil {
			return kerrors.Wrap(err, kerrors.ErrorTypeConfig, kerrors.ErrCodeManifestInvalid, "cannot register cached events").WithPath(file)
		}
	}

	for _, c := range snap.Common {
		hooks, err := a.lookupHooks(file, c.Hooks)
		if err != nil {
			return err
		}
		a.common = append(a.common, c)
		if err := a.runOnce(ctx, c.File, c.Hooks, hooks); err != nil {
			return err
		}
	}

	for _, helper := range a.helpers {
		if err := helper(ctx, a); err != nil {
			return fmt.Errorf("framework helper: %w", err)
		}
	}

	if err := a.middleware.Import(snap.Middleware); err != nil {
		return kerrors.Wrap(err, kerrors.ErrorTypeConfig, kerrors.ErrCodeManifestInvalid, "cannot import cached middleware").WithPath(file)
	}
	if len(snap.Provider) > 0 {
		a.container.Bind(snap.Provider)
	}
	a.config.Replace(snap.Config)

	a.logger.Debug(ctx, "Init cache loaded", "file", file, "version", snap.Version)
	return nil
}
