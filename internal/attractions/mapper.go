// Package attractions maps attraction names to the cities hosting them.
package attractions

import "sync"

// Mapper resolves attraction names to city identifiers. It satisfies
// plan.Resolver. Safe for concurrent use; lookups and reloads may race with
// planning calls.
type Mapper struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMapper() *Mapper {
	return &Mapper{m: map[string]string{}}
}

// Resolve returns the city for an attraction name, false when unknown.
func (mp *Mapper) Resolve(name string) (string, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	city, ok := mp.m[name]
	return city, ok
}

// Add registers or replaces a single attraction.
func (mp *Mapper) Add(name, city string) {
	mp.mu.Lock()
	mp.m[name] = city
	mp.mu.Unlock()
}

// AddAll registers a batch of name→city pairs.
func (mp *Mapper) AddAll(pairs map[string]string) {
	mp.mu.Lock()
	for name, city := range pairs {
		mp.m[name] = city
	}
	mp.mu.Unlock()
}

// Count returns the number of attractions loaded.
func (mp *Mapper) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.m)
}
