package adapter

import (
	"strings"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

// Registry maps company names, matched case-insensitively, to sources.
type Registry struct {
	sources map[string]model.Source
	keys    []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]model.Source)}
}

// Register adds s under key. A later registration for the same key replaces
// the earlier one.
func (r *Registry) Register(key string, s model.Source) {
	k := normalizeKey(key)
	if _, ok := r.sources[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.sources[k] = s
}

// Lookup returns the source registered for name.
func (r *Registry) Lookup(name string) (model.Source, bool) {
	s, ok := r.sources[normalizeKey(name)]
	return s, ok
}

// Keys returns registered keys in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
