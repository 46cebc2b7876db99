package series

import "math"

// Rate computes the per-second delta of a counter field between two
// observations. It returns nil if either observation or either field value
// is missing, signaling "insufficient data" rather than zero.
//
// The counters are monotonic, but resets happen; a negative delta clamps to
// 0 instead of reporting a negative rate. A zero time delta also yields 0,
// never NaN or an infinity.
func Rate[P any](start, end *Point[P], field func(P) *float64) *float64 {
	if start == nil || end == nil {
		return nil
	}
	sv := field(start.Payload)
	ev := field(end.Payload)
	if sv == nil || ev == nil {
		return nil
	}
	deltaMS := float64(end.Timestamp.Sub(start.Timestamp).Milliseconds())
	rate := (*ev - *sv) / deltaMS * 1000
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		rate = 0
	}
	return &rate
}

// Last returns the final point of a bucket's point list, or nil when the
// bucket is empty. It is the usual "end" observation for Rate.
func Last[P any](points []Point[P]) *Point[P] {
	if len(points) == 0 {
		return nil
	}
	return &points[len(points)-1]
}
