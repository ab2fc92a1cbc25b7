package driver

import (
	"fmt"
	"sync"
)

// Backend describes one registered implementation of a category.
//
// Name is what users select in config. An empty Name marks a placeholder
// that ends the meaningful part of the list without ending the list itself.
// Handle is opaque to this package.
type Backend struct {
	Name   string
	Handle any
}

// Registry is a category's own ordered list of backends.
//
// Backend returns false once index is past the end. Implementations must be
// stable: once index i reports false (or an empty name), every j >= i must
// do the same for as long as the registry is in use.
type Registry interface {
	Backend(index int) (Backend, bool)
}

// StaticRegistry is an immutable Registry built once at startup.
type StaticRegistry struct {
	backends []Backend
}

// NewStaticRegistry creates a registry over the given backends, in order.
// The slice is copied so later mutation by the caller has no effect.
func NewStaticRegistry(backends ...Backend) *StaticRegistry {
	cp := make([]Backend, len(backends))
	copy(cp, backends)
	return &StaticRegistry{backends: cp}
}

// Backend implements Registry.
func (r *StaticRegistry) Backend(index int) (Backend, bool) {
	if index < 0 || index >= len(r.backends) {
		return Backend{}, false
	}
	return r.backends[index], true
}

// Len returns the number of entries, placeholders included.
func (r *StaticRegistry) Len() int {
	return len(r.backends)
}

// Enumerator dispatches enumeration to the registry of each category.
//
// Registries are installed during startup with Register. Enumerate is safe
// for concurrent use.
type Enumerator struct {
	mu         sync.RWMutex
	registries [numCategories]Registry
}

// NewEnumerator creates an enumerator with no registries installed.
// Enumerating a category without a registry behaves like an empty list.
func NewEnumerator() *Enumerator {
	return &Enumerator{}
}

// Register installs the registry for a category, replacing any previous one.
func (e *Enumerator) Register(c Category, r Registry) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
	if sr, ok := r.(*StaticRegistry); ok {
		if err := checkRegistry(sr.backends); err != nil {
			return fmt.Errorf("registering %s backends: %w", c, err)
		}
	}

	e.mu.Lock()
	e.registries[c] = r
	e.mu.Unlock()
	return nil
}

// Enumerate returns the backend at index within the category's registry.
// The second result is false past the end of the list, for negative
// indices, and for categories without a registry.
func (e *Enumerator) Enumerate(c Category, index int) (Backend, bool) {
	if !c.Valid() || index < 0 {
		return Backend{}, false
	}

	e.mu.RLock()
	r := e.registries[c]
	e.mu.RUnlock()

	if r == nil {
		return Backend{}, false
	}
	return r.Backend(index)
}

// Names returns the selectable backend names of a category in order,
// stopping at the end of the list or the first placeholder.
func (e *Enumerator) Names(c Category) []string {
	var names []string
	for i := 0; i < maxEnumeration; i++ {
		b, ok := e.Enumerate(c, i)
		if !ok || b.Name == "" {
			break
		}
		names = append(names, b.Name)
	}
	return names
}

// checkRegistry rejects two non-empty names that differ only in case, and
// a named backend after a placeholder, which would make enumeration resume
// past the end of the list.
func checkRegistry(backends []Backend) error {
	seen := make(map[string]struct{}, len(backends))
	placeholder := -1
	for i, b := range backends {
		if b.Name == "" {
			if placeholder < 0 {
				placeholder = i
			}
			continue
		}
		if placeholder >= 0 {
			return fmt.Errorf("%w: %q at %d follows placeholder at %d", ErrNonMonotonicRegistry, b.Name, i, placeholder)
		}
		key := foldName(b.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateBackend, b.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}
