// Package kernel bootstraps an application: it resolves the directory
// layout, picks the sub-application serving the request, loads environment
// overrides, configuration, events, middleware and providers, and exposes
// the result through App.
//
// An App is configured through Options, bootstrapped once with Initialize
// and read-only afterwards. Build one App per request when requests are
// served concurrently.
package kernel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/thinkgo/internal/config"
	"github.com/conneroisu/thinkgo/internal/di"
	"github.com/conneroisu/thinkgo/internal/env"
	kerrors "github.com/conneroisu/thinkgo/internal/errors"
	"github.com/conneroisu/thinkgo/internal/event"
	"github.com/conneroisu/thinkgo/internal/logging"
	"github.com/conneroisu/thinkgo/internal/metrics"
	"github.com/conneroisu/thinkgo/internal/middleware"
	"github.com/conneroisu/thinkgo/internal/output"
	"github.com/conneroisu/thinkgo/internal/request"
)

// Version is the framework version reported by App.Version.
const Version = "5.2.0"

// DefaultApp is the application chosen when nothing else names one.
const DefaultApp = "index"

// DefaultTimezone applies when app.default_timezone is not configured.
const DefaultTimezone = "Asia/Shanghai"

// DefaultConfigExt is the extension of configuration and manifest files
// unless the config_ext environment variable says otherwise.
const DefaultConfigExt = ".yaml"

// Hook is a named boot function. Common files refer to hooks by name.
type Hook func(ctx context.Context, app *App) error

// State is the bootstrap lifecycle stage of an App.
type State int

const (
	StateUninitialized State = iota
	StateParsed
	StateLoaded
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateParsed:
		return "parsed"
	case StateLoaded:
		return "loaded"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Options configures an App. Zero values select defaults; nil collaborators
// are created fresh.
type Options struct {
	RootPath  string
	BasePath  string
	AppPath   string
	ThinkPath string

	Name          string
	Namespace     string
	RootNamespace string
	DefaultApp    string

	// Multi hosts several applications under BasePath. Auto picks the
	// application from the first request path segment and implies Multi.
	Multi bool
	Auto  bool
	Map   map[string]MapEntry

	Debug     bool
	WithEvent *bool
	// CLI marks a non-interactive run; debug mode then leaves output alone.
	CLI bool
	// EntryPoint names the running program. Defaults to os.Args[0].
	EntryPoint string
	// KeepProcessTimezone stores the configured timezone on the App only,
	// leaving time.Local untouched.
	KeepProcessTimezone bool

	Helpers []Hook

	Env        *env.Env
	Config     *config.Store
	Container  *di.Container
	Events     *event.Dispatcher
	Middleware *middleware.Chain
	Request    request.Request
	Output     *output.Buffer
	Logger     logging.Logger
	Metrics    *metrics.Metrics
}

// App is the bootstrapped application state.
type App struct {
	name          string
	debug         bool
	multi         bool
	auto          bool
	cli           bool
	keepTimezone  bool
	nameMap       map[string]MapEntry
	mapped        bool
	defaultApp    string
	entryPoint    string
	rootNamespace string
	namespace     string

	thinkPath   string
	rootPath    string
	basePath    string
	appPath     string
	runtimePath string
	configPath  string
	routePath   string
	urlPath     string
	configExt   string

	withEvent     bool
	displayErrors bool
	beginTime     time.Time
	beginMem      uint64
	location      *time.Location
	state         State
	fromCache     bool

	hooks     map[string]Hook
	common    []CommonHooks
	helpers   []Hook
	exception ExceptionHandler

	env        *env.Env
	config     *config.Store
	container  *di.Container
	events     *event.Dispatcher
	middleware *middleware.Chain
	request    request.Request
	output     *output.Buffer
	logger     logging.Logger
	metrics    *metrics.Metrics
}

// New creates an App from opts.
func New(opts Options) *App {
	a := &App{
		name:          opts.Name,
		debug:         opts.Debug,
		multi:         opts.Multi || opts.Auto,
		auto:          opts.Auto,
		cli:           opts.CLI,
		keepTimezone:  opts.KeepProcessTimezone,
		nameMap:       make(map[string]MapEntry, len(opts.Map)),
		defaultApp:    opts.DefaultApp,
		entryPoint:    opts.EntryPoint,
		rootNamespace: opts.RootNamespace,
		namespace:     opts.Namespace,
		configExt:     DefaultConfigExt,
		withEvent:     true,
		displayErrors: true,
		hooks:         make(map[string]Hook),
		helpers:       append([]Hook(nil), opts.Helpers...),

		env:        opts.Env,
		config:     opts.Config,
		container:  opts.Container,
		events:     opts.Events,
		middleware: opts.Middleware,
		request:    opts.Request,
		output:     opts.Output,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}

	for k, v := range opts.Map {
		a.nameMap[k] = v
	}
	if opts.WithEvent != nil {
		a.withEvent = *opts.WithEvent
	}
	if a.defaultApp == "" {
		a.defaultApp = DefaultApp
	}
	if a.rootNamespace == "" {
		a.rootNamespace = "app"
	}
	if a.entryPoint == "" && len(os.Args) > 0 {
		a.entryPoint = os.Args[0]
	}

	if a.env == nil {
		a.env = env.New()
	}
	if a.config == nil {
		a.config = config.NewStore()
	}
	if a.container == nil {
		a.container = di.New()
	}
	if a.events == nil {
		a.events = event.NewDispatcher()
	}
	if a.middleware == nil {
		a.middleware = middleware.NewChain()
	}
	if a.request == nil {
		a.request = request.NewStatic("")
	}
	if a.output == nil {
		a.output = output.New(os.Stdout)
	}
	if a.logger == nil {
		a.logger = logging.NewNopLogger()
	}
	a.logger = a.logger.WithComponent("kernel")

	a.thinkPath = normalizeDir(opts.ThinkPath, executableDir())
	a.rootPath = normalizeDir(opts.RootPath, workingDir())
	a.basePath = normalizeDir(opts.BasePath, a.rootPath+"app")
	if opts.AppPath != "" {
		a.appPath = normalizeDir(opts.AppPath, "")
	}

	a.registerInstances()
	return a
}

// registerInstances makes the App and its collaborators resolvable from the container.
func (a *App) registerInstances() {
	a.container.RegisterInstance("app", a)
	a.container.RegisterInstance("env", a.env)
	a.container.RegisterInstance("config", a.config)
	a.container.RegisterInstance("event", a.events)
	a.container.RegisterInstance("middleware", a.middleware)
	a.container.RegisterInstance("request", a.request)

	if !a.container.Has(ExceptionService) {
		a.container.RegisterSingleton(ExceptionService, func(di.DependencyResolver) (interface{}, error) {
			return kerrors.NewErrorHandler(a.logger), nil
		})
	}
	if !a.container.Has("log") {
		a.container.Register("log", func(di.DependencyResolver) (interface{}, error) {
			return a.logger.WithComponent("app"), nil
		})
	}
}

// Close shuts down the container's singleton services. The App must not be
// used for another request afterwards.
func (a *App) Close(ctx context.Context) error {
	return a.container.Shutdown(ctx)
}

// normalizeDir returns path (or def when path is empty) as an absolute
// directory ending in a separator.
func normalizeDir(path, def string) string {
	if path == "" {
		path = def
	}
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if !strings.HasSuffix(path, string(filepath.Separator)) {
		path += string(filepath.Separator)
	}
	return path
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return workingDir()
	}
	return filepath.Dir(exe)
}

// RegisterHook makes h available to common files under name.
func (a *App) RegisterHook(name string, h Hook) *App {
	a.hooks[name] = h
	return a
}

// WithEvent switches the event system on or off for Initialize.
func (a *App) WithEvent(enabled bool) *App {
	a.withEvent = enabled
	return a
}

// SetPath overrides the application directory.
func (a *App) SetPath(path string) *App {
	a.appPath = normalizeDir(path, "")
	return a
}

// Debug sets debug mode. When left off, Initialize consults app_debug.
func (a *App) Debug(debug bool) *App {
	a.debug = debug
	return a
}

// SetName fixes the application name.
func (a *App) SetName(name string) *App {
	a.name = name
	return a
}

// SetNamespace fixes the application namespace.
func (a *App) SetNamespace(namespace string) *App {
	a.namespace = namespace
	return a
}

// SetRootNamespace sets the namespace application namespaces derive from.
func (a *App) SetRootNamespace(rootNamespace string) *App {
	a.rootNamespace = rootNamespace
	return a
}

func (a *App) Version() string         { return Version }
func (a *App) Name() string            { return a.name }
func (a *App) IsDebug() bool           { return a.debug }
func (a *App) IsMulti() bool           { return a.multi }
func (a *App) IsAuto() bool            { return a.auto }
func (a *App) DisplayErrors() bool     { return a.displayErrors }
func (a *App) RootPath() string        { return a.rootPath }
func (a *App) BasePath() string        { return a.basePath }
func (a *App) AppPath() string         { return a.appPath }
func (a *App) RuntimePath() string     { return a.runtimePath }
func (a *App) ThinkPath() string       { return a.thinkPath }
func (a *App) RoutePath() string       { return a.routePath }
func (a *App) ConfigPath() string      { return a.configPath }
func (a *App) ConfigExt() string       { return a.configExt }
func (a *App) RootNamespace() string   { return a.rootNamespace }
func (a *App) Namespace() string       { return a.namespace }
func (a *App) DefaultAppName() string  { return a.defaultApp }
func (a *App) BeginTime() time.Time    { return a.beginTime }
func (a *App) BeginMem() uint64        { return a.beginMem }
func (a *App) State() State            { return a.state }
func (a *App) Location() *time.Location { return a.location }

// FromCache reports whether the last Initialize restored the init cache.
func (a *App) FromCache() bool { return a.fromCache }

func (a *App) Env() *env.Env                 { return a.env }
func (a *App) Config() *config.Store         { return a.config }
func (a *App) Container() *di.Container      { return a.container }
func (a *App) Events() *event.Dispatcher     { return a.events }
func (a *App) Middleware() *middleware.Chain { return a.middleware }
func (a *App) Request() request.Request      { return a.request }
func (a *App) Output() *output.Buffer        { return a.output }
func (a *App) Logger() logging.Logger        { return a.logger }
