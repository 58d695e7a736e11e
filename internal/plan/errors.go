package plan

import "errors"

var (
	// ErrUnknownCity means the requested start or end city has no roads in
	// the network. Fatal to the call, no partial result.
	ErrUnknownCity = errors.New("plan: unknown city")

	// ErrInfeasible means no connecting path exists for the requested
	// start/end/waypoints. Reported per call, never fatal to the process.
	ErrInfeasible = errors.New("plan: no feasible route")

	// ErrSegmentJoin means two reconstructed path segments did not share
	// their join city. This is an internal defect signal: it cannot happen
	// with a correct shortest-path oracle, but we check rather than return
	// a wrong route.
	ErrSegmentJoin = errors.New("plan: path segments do not join")

	// ErrTooManyWaypoints guards the factorial cost of exhaustive search.
	ErrTooManyWaypoints = errors.New("plan: too many waypoints for exact search")
)
