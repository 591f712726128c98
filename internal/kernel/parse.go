package kernel

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
	"github.com/conneroisu/thinkgo/internal/naming"
)

// MapEntry is a name map value: either a Literal application name or a
// Resolver computing one.
type MapEntry interface {
	resolve(a *App) string
}

// Literal maps a path segment straight to an application name.
type Literal string

func (l Literal) resolve(*App) string { return string(l) }

// Resolver computes the application name for a path segment. It must not
// modify the App; the returned name is assigned by the kernel.
type Resolver func(a *App) string

func (r Resolver) resolve(a *App) string { return r(a) }

// parse loads .env, resolves the application name and the paths derived
// from it, then settles the namespace and configuration extension.
func (a *App) parse(ctx context.Context) error {
	envFile := a.rootPath + ".env"
	if isFile(envFile) {
		if err := a.env.Load(envFile); err != nil {
			return kerrors.WrapConfig(err, kerrors.ErrCodeConfigLoad, envFile)
		}
		a.logger.Debug(ctx, "Environment file loaded", "file", envFile)
	}

	if err := a.parseAppName(); err != nil {
		return err
	}

	a.parsePath()

	if a.namespace == "" {
		if a.multi {
			a.namespace = a.rootNamespace + naming.NamespaceSeparator + a.name
		} else {
			a.namespace = a.rootNamespace
		}
	}

	a.configExt = a.env.Get("config_ext", DefaultConfigExt)
	if !strings.HasPrefix(a.configExt, ".") {
		a.configExt = "." + a.configExt
	}

	a.state = StateParsed
	a.logger.Debug(ctx, "Application parsed",
		"app", a.name,
		"namespace", a.namespace,
		"app_path", a.appPath,
	)
	return nil
}

// parseAppName decides which application serves the request.
func (a *App) parseAppName() error {
	a.urlPath = a.request.Path()

	switch {
	case a.auto && a.urlPath != "":
		segment := strings.SplitN(a.urlPath, "/", 2)[0]

		if entry, ok := a.nameMap[segment]; ok {
			a.name = entry.resolve(a)
			a.mapped = true
		} else if segment != "" && a.isMappedName(segment) {
			return kerrors.ErrAppNotFound(segment)
		} else if segment != "" {
			a.name = segment
		} else {
			a.name = a.defaultApp
		}
	case a.multi:
		if a.name == "" {
			a.name = a.scriptName()
		}
	}

	a.request.SetApp(a.name)
	return nil
}

// OtherAppLabel is the metrics label for applications found neither in
// the name map nor on disk.
const OtherAppLabel = "other"

// MetricsLabel names the App in metrics. Under automatic detection any path
// segment becomes a name, so only mapped names, the default application and
// applications with an existing directory are reported as themselves.
func (a *App) MetricsLabel() string {
	if !a.auto || a.name == "" || a.mapped || a.name == a.defaultApp || isDir(a.appPath) {
		return a.name
	}
	return OtherAppLabel
}

// isMappedName reports whether name is the target of some literal map entry.
// Such names are reachable only through their alias.
func (a *App) isMappedName(name string) bool {
	for _, entry := range a.nameMap {
		if lit, ok := entry.(Literal); ok && string(lit) == name {
			return true
		}
	}
	return false
}

// scriptName is the entry point's file name without extension, or the
// default application when unknown.
func (a *App) scriptName() string {
	if a.entryPoint == "" {
		return a.defaultApp
	}
	base := filepath.Base(a.entryPoint)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return a.defaultApp
	}
	return name
}

// parsePath computes the runtime, route, app and config directories and
// publishes every path to the environment.
func (a *App) parsePath() {
	sep := string(filepath.Separator)

	if a.multi {
		a.runtimePath = a.rootPath + "runtime" + sep + a.name + sep
		a.routePath = a.rootPath + "route" + sep + a.name + sep
	} else {
		a.runtimePath = a.rootPath + "runtime" + sep
		a.routePath = a.rootPath + "route" + sep
	}

	if a.appPath == "" {
		if a.multi {
			a.appPath = a.basePath + a.name + sep
		} else {
			a.appPath = a.basePath
		}
	}

	a.configPath = a.rootPath + "config" + sep

	a.env.SetMany(map[string]string{
		"think_path":   a.thinkPath,
		"root_path":    a.rootPath,
		"app_path":     a.appPath,
		"runtime_path": a.runtimePath,
		"route_path":   a.routePath,
		"config_path":  a.configPath,
	})
}

// GetRealPath returns the request path left for routing: under automatic
// application detection the leading application segment is removed.
func (a *App) GetRealPath() string {
	path := a.urlPath
	if path == "" || !a.auto {
		return path
	}
	if i := strings.Index(path, "/"); i > 0 {
		return path[i+1:]
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
