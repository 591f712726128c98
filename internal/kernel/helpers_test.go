package kernel

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/conneroisu/thinkgo/internal/env"
	"github.com/conneroisu/thinkgo/internal/output"
	"github.com/conneroisu/thinkgo/internal/request"
	"github.com/conneroisu/thinkgo/internal/testutils"
)

// testApp builds an App rooted at root with an isolated environment and no
// process-wide side effects.
func testApp(t *testing.T, root string, opts Options) *App {
	t.Helper()
	opts.RootPath = root
	if opts.Env == nil {
		opts.Env = env.NewIsolated()
	}
	if opts.Output == nil {
		opts.Output = output.New(&bytes.Buffer{})
	}
	if opts.Request == nil {
		opts.Request = request.NewStatic("")
	}
	if opts.EntryPoint == "" {
		opts.EntryPoint = "/usr/local/bin/index"
	}
	opts.KeepProcessTimezone = true
	return New(opts)
}

func writeFile(t *testing.T, root, path, content string) string {
	t.Helper()
	return testutils.WriteFile(t, root, path, content)
}

func dir(root string, parts ...string) string {
	p := root
	for _, part := range parts {
		p = filepath.Join(p, part)
	}
	return p + string(filepath.Separator)
}
