package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/conneroisu/thinkgo/internal/config"
	"github.com/conneroisu/thinkgo/internal/event"
	"github.com/conneroisu/thinkgo/internal/kernel"
	"github.com/conneroisu/thinkgo/internal/logging"
)

// bootstrap carries what every command needs to build an App.
type bootstrap struct {
	settings *config.Settings
	logger   logging.Logger
}

// loadBootstrap reads and validates the kernel settings from viper.
func loadBootstrap() (*bootstrap, error) {
	settings, err := config.LoadSettings(nil)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(settings.Log.Level)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    settings.Log.Format,
		Output:    os.Stderr,
		Component: "thinkgo",
	})

	return &bootstrap{settings: settings, logger: logger}, nil
}

// options translates the settings into kernel options.
func (b *bootstrap) options() kernel.Options {
	s := b.settings

	nameMap := make(map[string]kernel.MapEntry, len(s.Map))
	for segment, name := range s.Map {
		nameMap[segment] = kernel.Literal(name)
	}
	withEvent := s.WithEvent

	return kernel.Options{
		RootPath:      s.RootPath,
		BasePath:      s.BasePath,
		AppPath:       s.AppPath,
		Name:          s.Name,
		Namespace:     s.Namespace,
		RootNamespace: s.RootNamespace,
		DefaultApp:    s.DefaultApp,
		Multi:         s.Multi,
		Auto:          s.Auto,
		Map:           nameMap,
		Debug:         s.Debug,
		WithEvent:     &withEvent,
		Logger:        b.logger,
	}
}

// events returns a dispatcher with the listeners this binary provides.
func (b *bootstrap) events() *event.Dispatcher {
	d := event.NewDispatcher()
	d.RegisterListener("log", func(ctx context.Context, e event.Event) error {
		b.logger.Info(ctx, "Event triggered", "event", e.Name)
		return nil
	})
	return d
}

// appReport is what paths and serve print about a bootstrapped App.
type appReport struct {
	App         string   `json:"app"`
	Namespace   string   `json:"namespace"`
	Multi       bool     `json:"multi"`
	Auto        bool     `json:"auto"`
	Debug       bool     `json:"debug"`
	State       string   `json:"state"`
	RealPath    string   `json:"real_path"`
	RootPath    string   `json:"root_path"`
	BasePath    string   `json:"base_path"`
	AppPath     string   `json:"app_path"`
	RuntimePath string   `json:"runtime_path"`
	RoutePath   string   `json:"route_path"`
	ConfigPath  string   `json:"config_path"`
	ThinkPath   string   `json:"think_path"`
	ConfigExt   string   `json:"config_ext"`
	FromCache   bool     `json:"from_cache"`
	Middleware  []string `json:"middleware,omitempty"`
	ConfigFiles []string `json:"config_files,omitempty"`
}

func newAppReport(app *kernel.App) *appReport {
	return &appReport{
		App:         app.Name(),
		Namespace:   app.Namespace(),
		Multi:       app.IsMulti(),
		Auto:        app.IsAuto(),
		Debug:       app.IsDebug(),
		State:       app.State().String(),
		RealPath:    app.GetRealPath(),
		RootPath:    app.RootPath(),
		BasePath:    app.BasePath(),
		AppPath:     app.AppPath(),
		RuntimePath: app.RuntimePath(),
		RoutePath:   app.RoutePath(),
		ConfigPath:  app.ConfigPath(),
		ThinkPath:   app.ThinkPath(),
		ConfigExt:   app.ConfigExt(),
		FromCache:   app.FromCache(),
		Middleware:  app.Middleware().Names(),
		ConfigFiles: app.Config().Files(),
	}
}

func (r *appReport) text() string {
	name := r.App
	if name == "" {
		name = "(single)"
	}
	return fmt.Sprintf(`App:        %s
Namespace:  %s
State:      %s
Real path:  %s
Root:       %s
Base:       %s
App path:   %s
Runtime:    %s
Route:      %s
Config:     %s
Framework:  %s
Config ext: %s
`, name, r.Namespace, r.State, r.RealPath, r.RootPath, r.BasePath, r.AppPath,
		r.RuntimePath, r.RoutePath, r.ConfigPath, r.ThinkPath, r.ConfigExt)
}
