//go:build property

package kernel

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/thinkgo/internal/request"
)

func TestAutoDetectProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	root := t.TempDir()
	sep := string(filepath.Separator)

	properties.Property("the first segment names the app and the rest is routed", prop.ForAll(
		func(name, rest string) bool {
			app := testApp(t, root, Options{
				Auto:    true,
				Request: request.NewStatic(name + "/" + rest),
			})
			if _, err := app.Initialize(context.Background()); err != nil {
				return false
			}
			return app.Name() == name &&
				app.GetRealPath() == rest &&
				app.RuntimePath() == app.RootPath()+"runtime"+sep+name+sep &&
				app.Namespace() == "app\\"+name
		},
		gen.RegexMatch(`^[a-z][a-z0-9_]{0,12}$`),
		gen.RegexMatch(`^[a-z0-9/]{0,20}$`),
	))

	properties.Property("every resolved path is absolute and ends in a separator", prop.ForAll(
		func(name string, multi bool) bool {
			app := testApp(t, root, Options{Multi: multi, Name: name})
			if _, err := app.Initialize(context.Background()); err != nil {
				return false
			}
			for _, p := range []string{
				app.RootPath(), app.BasePath(), app.AppPath(), app.RuntimePath(),
				app.RoutePath(), app.ConfigPath(), app.ThinkPath(),
			} {
				if !filepath.IsAbs(p) || !strings.HasSuffix(p, sep) {
					return false
				}
			}
			return true
		},
		gen.RegexMatch(`^[a-z][a-z0-9]{0,12}$`),
		gen.Bool(),
	))

	properties.Property("a literal map target is only reachable through its alias", prop.ForAll(
		func(alias, target string) bool {
			if alias == target {
				return true
			}
			app := testApp(t, root, Options{
				Auto:    true,
				Map:     map[string]MapEntry{alias: Literal(target)},
				Request: request.NewStatic(target + "/x"),
			})
			_, err := app.Initialize(context.Background())
			return err != nil && strings.Contains(err.Error(), target)
		},
		gen.RegexMatch(`^[a-z]{1,8}$`),
		gen.RegexMatch(`^[A-Z][a-z]{0,8}$`),
	))

	properties.TestingRun(t)
}
