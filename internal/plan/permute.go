package plan

// forEachPermutation visits every ordering of items exactly once, calling
// fn with a view of the working slice. The enumeration is in-place
// swap/backtrack starting from the input order: position i takes, in turn,
// the element currently at i, i+1, ..., n-1. The first ordering visited is
// the input order itself, which makes tie-breaking deterministic for a
// fixed input. fn must not retain the slice across calls.
func forEachPermutation(items []string, fn func(perm []string)) {
	if len(items) == 0 {
		fn(items)
		return
	}
	permuteFrom(items, 0, fn)
}

func permuteFrom(items []string, start int, fn func(perm []string)) {
	if start == len(items)-1 {
		fn(items)
		return
	}
	for i := start; i < len(items); i++ {
		items[start], items[i] = items[i], items[start]
		permuteFrom(items, start+1, fn)
		items[start], items[i] = items[i], items[start]
	}
}

// factorial is only used for progress totals; the waypoint ceiling keeps n
// small enough that overflow is not a concern.
func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}
