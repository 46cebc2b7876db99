package series

// Aggregate reduces each bucket into a single record, preserving order and
// cardinality with the input.
//
// The reducer's start point is the bucket's own first point when the bucket
// holds at least two points. Otherwise it is the last point of the most
// recent non-empty preceding bucket, searching back down to and including
// bucket index 0. When no prior data exists at all, start is nil and the
// reducer decides what indeterminate looks like.
func Aggregate[P, F any](buckets []Bucket[P], reducer Reducer[P, F]) []Record[F] {
	out := make([]Record[F], 0, len(buckets))
	for i, b := range buckets {
		var start *Point[P]
		if len(b.Points) >= 2 {
			start = &b.Points[0]
		} else {
			for j := i - 1; j >= 0; j-- {
				prev := buckets[j].Points
				if len(prev) > 0 {
					start = &prev[len(prev)-1]
					break
				}
			}
		}
		out = append(out, Record[F]{
			Timestamp: b.End,
			Fields:    reducer(start, b.Points),
		})
	}
	return out
}
