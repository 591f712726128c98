// Package request adapts incoming requests to what the kernel needs while
// bootstrapping: the path used to pick an application, and a place to record
// the application that was picked.
package request

import (
	"net/http"
	"strings"
	"sync"
)

// Request is the kernel's view of an incoming request.
type Request interface {
	// Path returns the request path without a leading slash, e.g. "blog/post/1".
	Path() string
	// SetApp records the resolved application name.
	SetApp(name string)
}

// HTTP wraps a *http.Request.
type HTTP struct {
	r   *http.Request
	mu  sync.RWMutex
	app string
}

// FromHTTP wraps r.
func FromHTTP(r *http.Request) *HTTP {
	return &HTTP{r: r}
}

// Path implements Request.
func (h *HTTP) Path() string {
	if h.r == nil || h.r.URL == nil {
		return ""
	}
	return strings.TrimLeft(h.r.URL.Path, "/")
}

// SetApp implements Request.
func (h *HTTP) SetApp(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.app = name
}

// App returns the recorded application name.
func (h *HTTP) App() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.app
}

// Raw returns the wrapped request.
func (h *HTTP) Raw() *http.Request {
	return h.r
}

// Static is a Request with a fixed path, used by the CLI and tests.
type Static struct {
	PathInfo string
	AppName  string
}

// NewStatic returns a Static request for path.
func NewStatic(path string) *Static {
	return &Static{PathInfo: strings.TrimLeft(path, "/")}
}

// Path implements Request.
func (s *Static) Path() string { return s.PathInfo }

// SetApp implements Request.
func (s *Static) SetApp(name string) { s.AppName = name }
