package optionlists

import (
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// MountPath returns where Mount places the lists under basePath.
func MountPath(basePath string, fns ...OptionFn) string {
	return joinRoute(basePath, NewOptions(fns...).RoutePath)
}

// Mount registers the lists handler on r under basePath and returns the
// mount pattern.
func Mount(r chi.Router, basePath string, lists Lists, fns ...OptionFn) string {
	opts := NewOptions(fns...)
	pattern := joinRoute(basePath, opts.RoutePath)
	r.Mount(pattern, HandlerWithOptions(lists, opts))
	return pattern
}

func joinRoute(basePath, routePath string) string {
	return path.Join("/", strings.TrimSpace(basePath), strings.TrimSpace(routePath))
}
