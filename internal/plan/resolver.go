package plan

// Resolver maps an attraction name to the city hosting it. Implemented by
// internal/attractions; kept as an interface so the engine never depends on
// how the mapping is loaded.
type Resolver interface {
	Resolve(attraction string) (city string, ok bool)
}

// waypointCities turns raw attraction names into the waypoint list: resolve
// each name, skip unknown ones (returned in skipped so callers can report
// them), drop cities equal to start or end (implicitly visited), and
// deduplicate keeping first-occurrence order. The returned order is the
// permutation seed, not the visiting order.
func waypointCities(start, end string, names []string, r Resolver) (waypoints, skipped []string) {
	seen := map[string]bool{}
	for _, name := range names {
		city, ok := r.Resolve(name)
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		if city == start || city == end || seen[city] {
			continue
		}
		seen[city] = true
		waypoints = append(waypoints, city)
	}
	return waypoints, skipped
}
