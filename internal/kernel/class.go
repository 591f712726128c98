package kernel

import (
	"strings"

	"github.com/conneroisu/thinkgo/internal/naming"
)

// ParseClass builds the class identifier for name in layer under the
// application namespace. "admin/user_type" in layer "controller" becomes
// `<namespace>\controller\admin\UserType`.
func (a *App) ParseClass(layer, name string) string {
	name = strings.NewReplacer("/", naming.NamespaceSeparator, ".", naming.NamespaceSeparator).Replace(name)
	parts := strings.Split(name, naming.NamespaceSeparator)

	class := naming.ParseName(parts[len(parts)-1], naming.ToCamel, true)
	prefix := ""
	if len(parts) > 1 {
		prefix = strings.Join(parts[:len(parts)-1], naming.NamespaceSeparator) + naming.NamespaceSeparator
	}

	return a.namespace + naming.NamespaceSeparator + layer + naming.NamespaceSeparator + prefix + class
}

// Factory instantiates name through the container. A name without a
// namespace separator is capitalised and prefixed with namespace. When the
// class is unknown the error carries the identifier that was tried.
func (a *App) Factory(name, namespace string, args ...interface{}) (interface{}, error) {
	return Factory(a.container, name, namespace, args...)
}

// ResolveClass returns the identifier Factory would instantiate.
func ResolveClass(name, namespace string) string {
	if strings.Contains(name, naming.NamespaceSeparator) {
		return name
	}
	return namespace + naming.UpperWords(name)
}

// ClassInvoker is the part of the container Factory needs.
type ClassInvoker interface {
	InvokeClass(class string, args ...interface{}) (interface{}, error)
}

// Factory is App.Factory for an arbitrary container.
func Factory(c ClassInvoker, name, namespace string, args ...interface{}) (interface{}, error) {
	return c.InvokeClass(ResolveClass(name, namespace), args...)
}
