// Package plan implements the route planning engine: single-source Dijkstra
// over the road network, exhaustive search over waypoint orderings for the
// exact answer, and a nearest-neighbor alternative that trades optimality
// for speed. Both share one precompute step: a Dijkstra run per key point
// (start, end, every waypoint), after which all pairwise distance lookups
// are O(1).
package plan

import (
	"fmt"
	"math"
	"sync"

	"tripnav/internal/graph"
)

// DefaultMaxWaypoints bounds the exact optimizer's k! enumeration. Eight
// waypoints is 40320 orderings, still well under a millisecond of table
// lookups.
const DefaultMaxWaypoints = 8

// progressEvery is how many evaluated orderings sit between progress
// callbacks.
const progressEvery = 1000

// Route is a planned trip: the full city sequence from start to end, the
// waypoints in the order they are visited, and the total distance. Every
// consecutive pair in Path is a real road and the road weights sum to
// Distance.
type Route struct {
	Path      []string
	Visit     []string
	Distance  float64
	Evaluated int // orderings evaluated by the exact optimizer
	KeyPoints int // Dijkstra runs performed during precompute
	Skipped   []string // attraction names that did not resolve
}

// ProgressFunc receives (evaluated, total) ordering counts while the exact
// optimizer enumerates.
type ProgressFunc func(evaluated, total int)

// Planner computes routes over a road network. Safe for concurrent calls as
// long as the network is not mutated while planning runs; nothing is cached
// between calls.
type Planner struct {
	net      *graph.Network
	resolver Resolver
	maxWay   int

	mu            sync.Mutex
	lastOptimal   float64
	lastHeuristic float64
}

type Option func(*Planner)

// WithMaxWaypoints overrides the exact optimizer's waypoint ceiling.
func WithMaxWaypoints(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxWay = n
		}
	}
}

func New(net *graph.Network, resolver Resolver, opts ...Option) *Planner {
	p := &Planner{
		net:           net,
		resolver:      resolver,
		maxWay:        DefaultMaxWaypoints,
		lastOptimal:   -1,
		lastHeuristic: -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxWaypoints returns the exact optimizer's waypoint ceiling.
func (p *Planner) MaxWaypoints() int { return p.maxWay }

// LastOptimalDistance returns the distance of the most recent successful
// Optimal call, -1 if none. The Route return value is the source of truth;
// this accessor exists for interface compatibility with callers that poll
// state after the call.
func (p *Planner) LastOptimalDistance() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOptimal
}

// LastHeuristicDistance is the heuristic counterpart of
// LastOptimalDistance.
func (p *Planner) LastHeuristicDistance() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastHeuristic
}

// Optimal computes the globally shortest route from start to end that
// visits every resolvable attraction. See OptimalWithProgress.
func (p *Planner) Optimal(start, end string, attractions []string) (Route, error) {
	return p.OptimalWithProgress(start, end, attractions, nil)
}

// OptimalWithProgress enumerates every ordering of the waypoint set and
// keeps the minimum-distance feasible one; ties keep the first encountered,
// which is deterministic because the enumeration order is fixed (in-place
// swap/backtrack from the input order). progress, when non-nil, is invoked
// periodically during enumeration.
//
// Cost is O(k·(V+E)·log V) precompute plus O(k!·k) evaluation; the
// factorial term is the point of the waypoint ceiling, and the reason
// Heuristic exists.
func (p *Planner) OptimalWithProgress(start, end string, attractions []string, progress ProgressFunc) (Route, error) {
	waypoints, skipped, err := p.resolve(start, end, attractions)
	if err != nil {
		return Route{}, err
	}
	// Oversized requests are rejected here, before any Dijkstra runs.
	if len(waypoints) > p.maxWay {
		return Route{}, fmt.Errorf("%w: %d > %d", ErrTooManyWaypoints, len(waypoints), p.maxWay)
	}
	pre := p.precompute(start, end, waypoints)

	route := Route{KeyPoints: len(pre), Skipped: skipped}

	if len(waypoints) == 0 {
		path, dist := directLeg(start, end, pre)
		if path == nil {
			return Route{}, fmt.Errorf("%w: %s to %s", ErrInfeasible, start, end)
		}
		route.Path, route.Distance = path, dist
		p.recordOptimal(dist)
		return route, nil
	}

	total := factorial(len(waypoints))
	best := math.Inf(1)
	var bestOrder []string
	evaluated := 0

	scratch := make([]string, len(waypoints))
	copy(scratch, waypoints)
	forEachPermutation(scratch, func(perm []string) {
		d, feasible := orderingDistance(start, end, perm, pre)
		if feasible && d < best {
			best = d
			bestOrder = append(bestOrder[:0], perm...)
		}
		evaluated++
		if progress != nil && evaluated%progressEvery == 0 {
			progress(evaluated, total)
		}
	})
	if progress != nil {
		progress(evaluated, total)
	}
	route.Evaluated = evaluated

	if bestOrder == nil {
		return Route{}, fmt.Errorf("%w: no ordering connects all waypoints", ErrInfeasible)
	}

	path, err := p.assembleRoute(start, end, bestOrder, pre)
	if err != nil {
		return Route{}, err
	}
	route.Path, route.Visit, route.Distance = path, bestOrder, best
	p.recordOptimal(best)
	return route, nil
}

// Heuristic builds a route by repeatedly moving to the nearest unvisited
// waypoint, then on to the end city. Ties pick the waypoint that appears
// first in the deduplicated waypoint list, so a fixed input gives a fixed
// route. The result is not guaranteed minimal; the trade is O(k²) lookups
// instead of O(k!).
func (p *Planner) Heuristic(start, end string, attractions []string) (Route, error) {
	waypoints, skipped, err := p.resolve(start, end, attractions)
	if err != nil {
		return Route{}, err
	}
	pre := p.precompute(start, end, waypoints)

	route := Route{KeyPoints: len(pre), Skipped: skipped}

	if len(waypoints) == 0 {
		path, dist := directLeg(start, end, pre)
		if path == nil {
			return Route{}, fmt.Errorf("%w: %s to %s", ErrInfeasible, start, end)
		}
		route.Path, route.Distance = path, dist
		p.recordHeuristic(dist)
		return route, nil
	}

	visited := make(map[string]bool, len(waypoints))
	order := make([]string, 0, len(waypoints))
	total := 0.0
	cur := start

	for len(order) < len(waypoints) {
		next := ""
		nextDist := math.Inf(1)
		for _, w := range waypoints {
			if visited[w] {
				continue
			}
			if d := pre[cur].DistanceTo(w); d < nextDist {
				next, nextDist = w, d
			}
		}
		if next == "" || math.IsInf(nextDist, 1) {
			return Route{}, fmt.Errorf("%w: no reachable waypoint from %s", ErrInfeasible, cur)
		}
		visited[next] = true
		order = append(order, next)
		total += nextDist
		cur = next
	}

	finalDist := pre[cur].DistanceTo(end)
	if math.IsInf(finalDist, 1) {
		return Route{}, fmt.Errorf("%w: %s cannot reach %s", ErrInfeasible, cur, end)
	}
	total += finalDist

	path, err := p.assembleRoute(start, end, order, pre)
	if err != nil {
		return Route{}, err
	}
	route.Path, route.Visit, route.Distance = path, order, total
	p.recordHeuristic(total)
	return route, nil
}

// resolve validates start/end and maps attraction names to the
// deduplicated waypoint list. It runs no Dijkstra, so callers can bound
// the waypoint count before paying for precompute.
func (p *Planner) resolve(start, end string, attractions []string) (waypoints, skipped []string, err error) {
	if !p.net.HasCity(start) {
		return nil, nil, fmt.Errorf("%w: start %q", ErrUnknownCity, start)
	}
	if !p.net.HasCity(end) {
		return nil, nil, fmt.Errorf("%w: end %q", ErrUnknownCity, end)
	}
	waypoints, skipped = waypointCities(start, end, attractions, p.resolver)
	return waypoints, skipped, nil
}

// precompute runs Dijkstra once per key point. This single pass is what
// makes every later pairwise lookup O(1); it is never repeated per
// ordering.
func (p *Planner) precompute(start, end string, waypoints []string) map[string]Result {
	pre := make(map[string]Result, len(waypoints)+2)
	pre[start] = ShortestPaths(p.net, start)
	if end != start {
		pre[end] = ShortestPaths(p.net, end)
	}
	for _, w := range waypoints {
		// A waypoint with no roads stays out of the graph; its empty
		// result makes every leg through it infinite.
		pre[w] = ShortestPaths(p.net, w)
	}
	return pre
}

// orderingDistance sums precomputed leg distances for
// [start, perm..., end]. Any infinite leg makes the ordering infeasible.
func orderingDistance(start, end string, perm []string, pre map[string]Result) (float64, bool) {
	total := 0.0
	cur := start
	for _, w := range perm {
		d := pre[cur].DistanceTo(w)
		if math.IsInf(d, 1) {
			return 0, false
		}
		total += d
		cur = w
	}
	d := pre[cur].DistanceTo(end)
	if math.IsInf(d, 1) {
		return 0, false
	}
	return total + d, true
}

// assembleRoute reconstructs each leg of the visiting order from the
// precomputed predecessor maps and concatenates them.
func (p *Planner) assembleRoute(start, end string, order []string, pre map[string]Result) ([]string, error) {
	points := make([]string, 0, len(order)+2)
	points = append(points, start)
	points = append(points, order...)
	points = append(points, end)

	segments := make([][]string, 0, len(points)-1)
	for i := 0; i < len(points)-1; i++ {
		seg := pathFrom(points[i], points[i+1], pre[points[i]])
		if seg == nil {
			return nil, fmt.Errorf("%w: %s to %s", ErrInfeasible, points[i], points[i+1])
		}
		segments = append(segments, seg)
	}
	return concatSegments(segments)
}

// directLeg is the zero-waypoint case: the oracle's start→end path, nil
// when unreachable.
func directLeg(start, end string, pre map[string]Result) ([]string, float64) {
	res := pre[start]
	d := res.DistanceTo(end)
	if math.IsInf(d, 1) {
		return nil, 0
	}
	path := pathFrom(start, end, res)
	if path == nil {
		return nil, 0
	}
	return path, d
}

func (p *Planner) recordOptimal(d float64) {
	p.mu.Lock()
	p.lastOptimal = d
	p.mu.Unlock()
}

func (p *Planner) recordHeuristic(d float64) {
	p.mu.Lock()
	p.lastHeuristic = d
	p.mu.Unlock()
}
