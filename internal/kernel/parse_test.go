package kernel

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
	"github.com/conneroisu/thinkgo/internal/request"
)

func TestSingleAppPaths(t *testing.T) {
	root := t.TempDir()
	app := testApp(t, root, Options{})

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)

	rootPath := dir(root)
	assert.Equal(t, rootPath, app.RootPath())
	assert.Equal(t, rootPath+"runtime"+string(filepath.Separator), app.RuntimePath())
	assert.Equal(t, rootPath+"route"+string(filepath.Separator), app.RoutePath())
	assert.Equal(t, rootPath+"config"+string(filepath.Separator), app.ConfigPath())
	assert.Equal(t, dir(root, "app"), app.BasePath())
	assert.Equal(t, app.BasePath(), app.AppPath())
	assert.Empty(t, app.Name())
	assert.Equal(t, "app", app.Namespace())
	assert.Equal(t, StateReady, app.State())

	for _, p := range []string{
		app.RootPath(), app.BasePath(), app.AppPath(), app.RuntimePath(),
		app.RoutePath(), app.ConfigPath(), app.ThinkPath(),
	} {
		assert.True(t, filepath.IsAbs(p), p)
		assert.True(t, strings.HasSuffix(p, string(filepath.Separator)), p)
	}
}

func TestPathsPublishedToEnv(t *testing.T) {
	root := t.TempDir()
	app := testApp(t, root, Options{Multi: true, Name: "shop"})

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)

	e := app.Env()
	assert.Equal(t, app.ThinkPath(), e.Get("think_path", ""))
	assert.Equal(t, app.RootPath(), e.Get("root_path", ""))
	assert.Equal(t, app.AppPath(), e.Get("app_path", ""))
	assert.Equal(t, app.RuntimePath(), e.Get("runtime_path", ""))
	assert.Equal(t, app.RoutePath(), e.Get("route_path", ""))
	assert.Equal(t, app.ConfigPath(), e.Get("config_path", ""))
}

func TestMultiAppPaths(t *testing.T) {
	root := t.TempDir()
	app := testApp(t, root, Options{Multi: true, Name: "shop"})

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "shop", app.Name())
	assert.Equal(t, dir(root, "runtime", "shop"), app.RuntimePath())
	assert.Equal(t, dir(root, "route", "shop"), app.RoutePath())
	assert.Equal(t, dir(root, "app", "shop"), app.AppPath())
	assert.Equal(t, dir(root, "config"), app.ConfigPath())
	assert.Equal(t, `app\shop`, app.Namespace())
}

func TestExplicitAppPathIsKept(t *testing.T) {
	root := t.TempDir()
	custom := filepath.Join(root, "src", "blog")
	app := testApp(t, root, Options{Multi: true, Name: "blog"}).SetPath(custom)

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dir(root, "src", "blog"), app.AppPath())
}

func TestAutoDetectLiteral(t *testing.T) {
	root := t.TempDir()
	req := request.NewStatic("blog/post/1")
	app := testApp(t, root, Options{
		Auto:    true,
		Map:     map[string]MapEntry{"blog": Literal("BlogApp")},
		Request: req,
	})

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "BlogApp", app.Name())
	assert.Equal(t, "post/1", app.GetRealPath())
	assert.Equal(t, "BlogApp", req.AppName)
	assert.True(t, app.IsMulti())
	assert.Equal(t, dir(root, "runtime", "BlogApp"), app.RuntimePath())
}

func TestAutoDetectResolver(t *testing.T) {
	root := t.TempDir()
	app := testApp(t, root, Options{
		Auto: true,
		Map: map[string]MapEntry{
			"v2": Resolver(func(a *App) string { return "api_" + a.DefaultAppName() }),
		},
		Request: request.NewStatic("v2/users"),
	})

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "api_index", app.Name())
	assert.Equal(t, "users", app.GetRealPath())
}

func TestAutoDetectReservedName(t *testing.T) {
	root := t.TempDir()
	app := testApp(t, root, Options{
		Auto: true,
		Map: map[string]MapEntry{
			"api":         Literal("ApiApp"),
			"legacyAdmin": Literal("admin"),
		},
		Request: request.NewStatic("admin/x"),
	})

	_, err := app.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, kerrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "admin")
	assert.Equal(t, http.StatusNotFound, kerrors.HTTPStatus(err))
	assert.Equal(t, StateUninitialized, app.State())
}

func TestAutoDetectSegment(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantApp  string
		wantReal string
	}{
		{"unmapped segment", "shop/cart", "shop", "cart"},
		{"single segment", "shop", "shop", ""},
		{"leading slash", "/cart", "index", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp(t, t.TempDir(), Options{
				Auto:    true,
				Map:     map[string]MapEntry{"blog": Literal("BlogApp")},
				Request: &request.Static{PathInfo: tt.path},
			})

			_, err := app.Initialize(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantApp, app.Name())
			assert.Equal(t, tt.wantReal, app.GetRealPath())
		})
	}
}

func TestMetricsLabel(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		dirs []string
		want string
	}{
		{"single app", Options{}, nil, ""},
		{"multi explicit name", Options{Multi: true, Name: "anything"}, nil, "anything"},
		{"mapped literal", Options{Auto: true, Request: request.NewStatic("blog/x")}, nil, "BlogApp"},
		{"mapped resolver", Options{Auto: true, Request: request.NewStatic("api/v1")}, nil, "ApiApp"},
		{"default app", Options{Auto: true, Request: request.NewStatic("index/x")}, nil, "index"},
		{"existing directory", Options{Auto: true, Request: request.NewStatic("shop/x")}, []string{"app/shop"}, "shop"},
		{"unknown segment", Options{Auto: true, Request: request.NewStatic("junk42/x")}, nil, OtherAppLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, d := range tt.dirs {
				writeFile(t, root, d+"/.keep", "")
			}
			tt.opts.Map = map[string]MapEntry{
				"blog": Literal("BlogApp"),
				"api":  Resolver(func(*App) string { return "ApiApp" }),
			}

			app := testApp(t, root, tt.opts)
			_, err := app.Initialize(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, app.MetricsLabel())
		})
	}
}

func TestAutoDetectEmptyPathUsesEntryPoint(t *testing.T) {
	app := testApp(t, t.TempDir(), Options{
		Auto:       true,
		EntryPoint: "/srv/www/admin.go",
	})

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", app.Name())
	assert.Empty(t, app.GetRealPath())
}

func TestMultiAppName(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		entryPoint string
		expected   string
	}{
		{"explicit name", "shop", "/bin/other", "shop"},
		{"entry point", "", "/srv/public/admin.php", "admin"},
		{"entry point without extension", "", "api", "api"},
		{"root entry point", "", string(filepath.Separator), "index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request.NewStatic("ignored/path")
			app := testApp(t, t.TempDir(), Options{
				Multi:      true,
				Name:       tt.explicit,
				EntryPoint: tt.entryPoint,
				Request:    req,
			})

			_, err := app.Initialize(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, app.Name())
			assert.Equal(t, tt.expected, req.AppName)
			assert.Equal(t, "ignored/path", app.GetRealPath())
		})
	}
}

func TestSingleAppIgnoresRequestPath(t *testing.T) {
	req := request.NewStatic("blog/post")
	req.AppName = "stale"
	app := testApp(t, t.TempDir(), Options{Request: req})

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.Empty(t, app.Name())
	assert.Empty(t, req.AppName)
	assert.Equal(t, "blog/post", app.GetRealPath())
}

func TestNamespaceDefaults(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected string
	}{
		{"single", Options{}, "app"},
		{"single custom root", Options{RootNamespace: "acme"}, "acme"},
		{"multi", Options{Multi: true, Name: "blog"}, `app\blog`},
		{"multi custom root", Options{Multi: true, Name: "blog", RootNamespace: "acme"}, `acme\blog`},
		{"explicit", Options{Multi: true, Name: "blog", Namespace: `vendor\blog`}, `vendor\blog`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp(t, t.TempDir(), tt.opts)
			_, err := app.Initialize(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, app.Namespace())
			assert.NotEmpty(t, app.Namespace())
		})
	}
}

func TestSetters(t *testing.T) {
	app := testApp(t, t.TempDir(), Options{Multi: true}).
		SetName("cms").
		SetRootNamespace("site").
		WithEvent(false).
		Debug(true)

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cms", app.Name())
	assert.Equal(t, `site\cms`, app.Namespace())
	assert.Equal(t, "site", app.RootNamespace())
	assert.False(t, app.Events().Enabled())
	assert.True(t, app.IsDebug())

	app2 := testApp(t, t.TempDir(), Options{}).SetNamespace(`custom\ns`)
	_, err = app2.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `custom\ns`, app2.Namespace())
}

func TestConfigExtFromEnv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "CONFIG_EXT=json\n")

	app := testApp(t, root, Options{})
	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ".json", app.ConfigExt())
}

func TestDefaultConfigExt(t *testing.T) {
	app := testApp(t, t.TempDir(), Options{})
	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigExt, app.ConfigExt())
}

func TestInitializeTwice(t *testing.T) {
	app := testApp(t, t.TempDir(), Options{})
	ctx := context.Background()

	_, err := app.Initialize(ctx)
	require.NoError(t, err)
	begin := app.BeginTime()

	_, err = app.Initialize(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, begin, app.BeginTime())
	assert.Equal(t, StateReady, app.State())
}

func TestBeginTimeAndMemory(t *testing.T) {
	app := testApp(t, t.TempDir(), Options{})
	assert.True(t, app.BeginTime().IsZero())

	_, err := app.Initialize(context.Background())
	require.NoError(t, err)
	assert.False(t, app.BeginTime().IsZero())
	assert.NotZero(t, app.BeginMem())
	assert.Equal(t, Version, app.Version())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "parsed", StateParsed.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "unknown", State(9).String())
}
