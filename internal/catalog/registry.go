package catalog

import "sync"

// Registry holds all registered catalog adapters keyed by name.
type Registry struct {
	mu       sync.RWMutex
	catalogs map[Name]Catalog
}

// NewRegistry creates an empty catalog registry.
func NewRegistry() *Registry {
	return &Registry{
		catalogs: make(map[Name]Catalog),
	}
}

// Register adds a catalog to the registry.
func (r *Registry) Register(c Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[c.Name()] = c
}

// Get returns a catalog by name, or nil if not registered.
func (r *Registry) Get(name Name) Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalogs[name]
}

// All returns all registered catalogs in cascade order.
func (r *Registry) All() []Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Catalog
	for _, name := range AllNames() {
		if c, ok := r.catalogs[name]; ok {
			result = append(result, c)
		}
	}
	return result
}
