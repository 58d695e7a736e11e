package plan

import (
	"container/heap"
	"math"

	"tripnav/internal/graph"
)

// Result holds single-source shortest-path output: the minimal distance to
// every city in the network (+Inf when unreachable) and, for each reachable
// non-source city, its immediate predecessor on one shortest path.
type Result struct {
	Dist map[string]float64
	Prev map[string]string
}

// DistanceTo returns the computed distance to city, +Inf when the city is
// unknown to this run.
func (r Result) DistanceTo(city string) float64 {
	if d, ok := r.Dist[city]; ok {
		return d
	}
	return math.Inf(1)
}

type pqItem struct {
	city string
	dist float64
}

type pq []pqItem

func (p pq) Len() int            { return len(p) }
func (p pq) Less(i, j int) bool  { return p[i].dist < p[j].dist }
func (p pq) Swap(i, j int)       { p[i], p[j] = p[j], p[i] }
func (p *pq) Push(x any)         { *p = append(*p, x.(pqItem)) }
func (p *pq) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}

// ShortestPaths runs Dijkstra from source over net. Weights are assumed
// non-negative. Stale heap entries are discarded on pop rather than
// decreased in place, so each relaxation is a plain push. If source has no
// roads the maps come back empty and callers must check.
func ShortestPaths(net *graph.Network, source string) Result {
	if !net.HasCity(source) {
		return Result{Dist: map[string]float64{}, Prev: map[string]string{}}
	}

	dist := make(map[string]float64, net.NumCities())
	for _, c := range net.Cities() {
		dist[c] = math.Inf(1)
	}
	dist[source] = 0
	prev := map[string]string{}
	visited := map[string]bool{}

	q := &pq{}
	heap.Push(q, pqItem{city: source, dist: 0})

	for q.Len() > 0 {
		cur := heap.Pop(q).(pqItem)
		u := cur.city
		if visited[u] {
			continue
		}
		visited[u] = true

		for _, road := range net.Neighbors(u) {
			v := road.To
			if visited[v] {
				continue
			}
			nd := cur.dist + road.Dist
			if nd < dist[v] {
				dist[v] = nd
				prev[v] = u
				heap.Push(q, pqItem{city: v, dist: nd})
			}
		}
	}

	return Result{Dist: dist, Prev: prev}
}

// pathFrom rebuilds the city sequence from source to dest by walking the
// predecessor map backwards. Returns nil when dest is unreachable. The
// source==dest case yields the single-city path.
func pathFrom(source, dest string, r Result) []string {
	if source == dest {
		return []string{source}
	}
	if _, ok := r.Prev[dest]; !ok {
		return nil
	}
	path := []string{}
	for cur := dest; ; {
		path = append(path, cur)
		if cur == source {
			break
		}
		p, ok := r.Prev[cur]
		if !ok {
			return nil
		}
		cur = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
