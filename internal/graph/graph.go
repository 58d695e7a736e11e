// Package graph holds the in-memory road network the planner runs on.
package graph

import "sort"

// Road is one directed half of an undirected road: a neighbor city and the
// distance to it. City identifiers are opaque strings; the engine never
// parses them.
type Road struct {
	To   string
	Dist float64
}

// Network is an undirected weighted multigraph over city identifiers.
// Duplicate roads between the same pair are legal and all of them are
// considered during planning. A Network is not safe for concurrent mutation;
// concurrent reads are fine as long as nobody is mutating.
type Network struct {
	adj     map[string][]Road
	version uint64
}

func New() *Network {
	return &Network{adj: map[string][]Road{}}
}

// AddRoad inserts the road in both directions. dist is assumed finite and
// non-negative; the loader validates records before calling.
func (n *Network) AddRoad(a, b string, dist float64) {
	n.adj[a] = append(n.adj[a], Road{To: b, Dist: dist})
	n.adj[b] = append(n.adj[b], Road{To: a, Dist: dist})
	n.version++
}

// Neighbors returns all roads incident to city. Unknown cities yield an
// empty slice, not an error.
func (n *Network) Neighbors(city string) []Road {
	return n.adj[city]
}

// HasCity reports whether city has at least one incident road.
func (n *Network) HasCity(city string) bool {
	_, ok := n.adj[city]
	return ok
}

// Cities returns the sorted set of cities with at least one incident road.
func (n *Network) Cities() []string {
	out := make([]string, 0, len(n.adj))
	for c := range n.adj {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// NumCities returns the vertex count without materializing the city list.
func (n *Network) NumCities() int { return len(n.adj) }

// NumRoads returns the number of undirected roads.
func (n *Network) NumRoads() int {
	half := 0
	for _, rs := range n.adj {
		half += len(rs)
	}
	return half / 2
}

// Version increases with every mutation. Cache keys embed it so that any
// change to the network implicitly invalidates cached plans.
func (n *Network) Version() uint64 { return n.version }
