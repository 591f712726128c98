// Package testutils holds fixtures shared by package tests: temporary
// project layouts, file helpers and hostile inputs.
package testutils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// ProjectDirs are the directories every project created by CreateTempProject has.
var ProjectDirs = []string{"app", "config", "route", "runtime"}

// CreateTempProject creates a temporary project root with the standard
// directories. Each name in apps also gets app/<name>/config.
func CreateTempProject(t *testing.T, apps ...string) string {
	t.Helper()
	root := t.TempDir()

	dirs := append([]string(nil), ProjectDirs...)
	for _, app := range apps {
		dirs = append(dirs, filepath.Join("app", app, "config"))
	}

	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	return root
}

// WriteFile writes content to the slash-separated path rel below root,
// creating parent directories, and returns the full path.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

// WriteFiles writes every rel -> content pair below root, in path order.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	paths := make([]string, 0, len(files))
	for rel := range files {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	for _, rel := range paths {
		WriteFile(t, root, rel, files[rel])
	}
}

// StandardManifests is a multi-application project with a "blog" app. It
// expects a listener named "log", middleware named "recover" and
// "logging", and a class `app\blog\service\Cache`.
var StandardManifests = map[string]string{
	"config/app.yaml":               "name: demo\ndefault_timezone: UTC\n",
	"config/database.yaml":          "host: 127.0.0.1\nport: 3306\n",
	"app/event.yaml":                "listen:\n  AppInit: [log]\n",
	"app/middleware.yaml":           "middleware: [recover]\n",
	"app/blog/config/database.yaml": "host: blog.db\n",
	"app/blog/middleware.yaml":      "middleware: [logging]\n",
	"app/blog/provider.yaml":        "cache: 'app\\blog\\service\\Cache'\n",
}

// SecurityTestCases provides hostile path inputs
var SecurityTestCases = struct {
	PathTraversal    []string
	CommandInjection []string
}{
	PathTraversal: []string{
		"../../../etc/passwd",
		"..\\..\\..\\windows\\system32\\config\\sam",
		"....//....//....//etc/passwd",
		"./../../etc/passwd",
		"app/../../../../etc/passwd",
	},
	CommandInjection: []string{
		"app; rm -rf /",
		"app && rm -rf /",
		"app | cat /etc/passwd",
		"app`id`",
		"app$(id)",
		"app > /dev/null",
	},
}
