// Package cache provides optional caching of plan results. Caching is a
// performance extension, not part of the planning contract: keys embed the
// graph version, so any road mutation makes previous entries unreachable
// and results stay correct without explicit invalidation.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"tripnav/internal/model"
)

// defaultCapacity bounds the in-memory cache; plans are small, so a few
// thousand entries is cheap.
const defaultCapacity = 4096

// Key identifies one planning request against one graph state.
type Key struct {
	GraphVersion uint64
	Algorithm    string
	Start        string
	End          string
	Attractions  []string
}

// String renders a stable cache key. Attraction order matters: it is the
// permutation seed for tie-breaking, so differently ordered requests are
// different cache entries.
func (k Key) String() string {
	h := sha256.Sum256([]byte(k.Start + "\x00" + k.End + "\x00" + strings.Join(k.Attractions, "\x00")))
	return fmt.Sprintf("plan:%d:%s:%s", k.GraphVersion, k.Algorithm, hex.EncodeToString(h[:16]))
}

// PlanCache stores finished plan results.
type PlanCache interface {
	Get(k Key) (model.PlanResult, bool)
	Put(k Key, v model.PlanResult)
}

type lruEntry struct {
	key string
	val model.PlanResult
}

// LRU is a bounded in-memory PlanCache, safe for concurrent use.
type LRU struct {
	mu       sync.Mutex
	m        map[string]*list.Element
	ll       *list.List
	capacity int

	gets int
	hits int
}

func NewLRU() *LRU { return NewLRUWithCap(defaultCapacity) }

func NewLRUWithCap(capacity int) *LRU {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &LRU{
		m:        make(map[string]*list.Element, capacity),
		ll:       list.New(),
		capacity: capacity,
	}
}

func (c *LRU) Get(k Key) (model.PlanResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if el, ok := c.m[k.String()]; ok {
		c.hits++
		c.ll.MoveToFront(el)
		return el.Value.(lruEntry).val, true
	}
	return model.PlanResult{}, false
}

func (c *LRU) Put(k Key, v model.PlanResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ks := k.String()
	if el, ok := c.m[ks]; ok {
		el.Value = lruEntry{key: ks, val: v}
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(lruEntry{key: ks, val: v})
	c.m[ks] = el
	if c.ll.Len() > c.capacity {
		tail := c.ll.Back()
		if tail != nil {
			delete(c.m, tail.Value.(lruEntry).key)
			c.ll.Remove(tail)
		}
	}
}

// Stats returns lookup counters, snapshot under lock.
func (c *LRU) Stats() (gets, hits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.hits
}
