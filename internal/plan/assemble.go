package plan

import "fmt"

// concatSegments joins shortest-path segments into one continuous route:
// the first segment in full, then every later segment with its leading
// city dropped, since consecutive segments share exactly that city. Any
// empty segment or join mismatch fails the call rather than returning a
// broken route.
func concatSegments(segments [][]string) ([]string, error) {
	if len(segments) == 0 {
		return []string{}, nil
	}
	out := []string{}
	for i, seg := range segments {
		if len(seg) == 0 {
			return nil, fmt.Errorf("%w: segment %d is empty", ErrSegmentJoin, i)
		}
		if i == 0 {
			out = append(out, seg...)
			continue
		}
		if out[len(out)-1] != seg[0] {
			return nil, fmt.Errorf("%w: segment %d starts at %q, previous ended at %q",
				ErrSegmentJoin, i, seg[0], out[len(out)-1])
		}
		out = append(out, seg[1:]...)
	}
	return out, nil
}
