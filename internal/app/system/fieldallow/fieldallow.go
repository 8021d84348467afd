// Package fieldallow controls which group custom-field keys may be written.
//
// Keys are registered at runtime (at startup from config, or by extensions)
// into a Registry. Writers ask the registry for the current key set on
// every call and pass it to Filter; nothing caches the set across requests.
// An empty set allows nothing.
package fieldallow

import (
	"sort"
	"strings"
	"sync"
)

// Filter returns the entries of requested whose key is in allowed.
// The result is never nil. Rejected keys are dropped silently.
func Filter(requested map[string]string, allowed map[string]struct{}) map[string]string {
	out := make(map[string]string)
	if len(allowed) == 0 {
		return out
	}
	for k, v := range requested {
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Registry is the set of custom-field keys that may be written.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewRegistry returns an empty (fully closed) registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]struct{})}
}

// Register adds keys to the registry. Blank keys are ignored.
func (r *Registry) Register(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			r.keys[k] = struct{}{}
		}
	}
}

// Reset removes every registered key.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = make(map[string]struct{})
}

// Allowed returns a snapshot of the registered keys. Callers may keep or
// modify the returned map without affecting the registry.
func (r *Registry) Allowed() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{}, len(r.keys))
	for k := range r.keys {
		out[k] = struct{}{}
	}
	return out
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	allowed := r.Allowed()
	out := make([]string, 0, len(allowed))
	for k := range allowed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
