package kernel

import (
	"context"
	"time"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
	"github.com/conneroisu/thinkgo/internal/watcher"
)

// Watch starts watching the App's configuration, manifest and .env files.
// Under multi-app layout every application below the base path is watched
// and a change clears the init cache of all of them. onChange, when set, is
// called with the changed paths. The watcher stops when ctx is done; callers
// should also Stop it.
func (a *App) Watch(ctx context.Context, debounce time.Duration, onChange func([]string)) (*watcher.FileWatcher, error) {
	if a.state < StateParsed {
		return nil, kerrors.NewStateError(kerrors.ErrCodeNotInitialized, "application paths are not resolved")
	}

	fw, err := watcher.NewFileWatcher(a.rootPath, debounce, a.logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(watcher.NoTempFilter)
	fw.AddFilter(watcher.ExcludeDirFilter(a.rootPath + "runtime"))
	fw.AddFilter(watcher.AnyFilter(
		watcher.ExtFilter(a.configExt),
		watcher.NamesFilter(".env"),
	))

	add := []func() error{
		func() error { return fw.AddPath(a.rootPath) },
		func() error { return fw.AddRecursive(a.configPath) },
	}
	if a.multi {
		add = append(add, func() error { return fw.AddRecursive(a.basePath) })
	} else {
		add = append(add, func() error { return fw.AddPath(a.appPath) })
	}
	for _, fn := range add {
		if err := fn(); err != nil {
			_ = fw.Stop()
			return nil, err
		}
	}

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		paths := make([]string, 0, len(events))
		for _, e := range events {
			paths = append(paths, e.Path)
		}
		a.logger.Info(ctx, "Configuration changed", "files", paths)

		if _, err := a.ClearCaches(ctx); err != nil {
			return err
		}
		if onChange != nil {
			onChange(paths)
		}
		return nil
	})

	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	return fw, nil
}
