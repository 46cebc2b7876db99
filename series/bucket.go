package series

import "time"

// Partition groups time-ordered points into fixed-width buckets identified
// by the caller-supplied, non-decreasing end timestamps. The result always
// has exactly len(ends) buckets, in order; buckets with no qualifying points
// are emitted empty so downstream aggregation stays positionally aligned
// with ends.
//
// A single forward cursor consumes each point at most once. Points earlier
// than a bucket's implicit start (end - width) are consumed but dropped;
// those should only occur at the very first bucket due to padding added
// upstream by the caller. Out-of-order ends are handled best-effort: the
// cursor never rewinds, so a regressing end can only produce an empty
// bucket.
func Partition[P any](points []Point[P], ends []time.Time, width time.Duration) []Bucket[P] {
	buckets := make([]Bucket[P], 0, len(ends))
	i := 0
	for _, end := range ends {
		start := end.Add(-width)
		var pts []Point[P]
		for i < len(points) && !points[i].Timestamp.After(end) {
			if !points[i].Timestamp.Before(start) {
				pts = append(pts, points[i])
			}
			i++
		}
		buckets = append(buckets, Bucket[P]{End: end, Points: pts})
	}
	return buckets
}
