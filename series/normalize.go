package series

import (
	"math"
	"time"
)

// Normalize fills temporal gaps in a raw update stream, producing a dense
// sequence of points with forward-filled payloads at interval granularity.
//
// The stream must contain at least one progress marker to establish a
// reliable horizon; until then the stream is still warming up and Normalize
// returns nil. The first real row is the snapshot: the initial state as of
// subscription start, whose timestamp is not reliably aligned to the
// collection interval. Synthetic filler between the snapshot and the second
// real point is therefore aligned backward from the second point so it lands
// on the same time grid as real data. Real rows are always preserved
// verbatim; synthetic points never overwrite them.
//
// margin is the variance tolerance fraction applied to interval when
// deciding whether a gap needs filling; values <= 0 use
// DefaultVarianceMargin.
func Normalize[P any](rows []Row[P], interval time.Duration, margin float64) []Point[P] {
	if len(rows) == 0 || interval <= 0 {
		return nil
	}
	if margin <= 0 {
		margin = DefaultVarianceMargin
	}

	progressed := false
	var real []Point[P]
	for _, r := range rows {
		if r.Progress {
			progressed = true
			continue
		}
		real = append(real, Point[P]{Timestamp: r.Timestamp, Payload: r.Payload})
	}
	if !progressed || len(real) == 0 {
		// No reliable horizon yet, or no state at all.
		return nil
	}

	// Rows are time-ordered, so the horizon is the last row's timestamp,
	// whether it is a progress marker or real data.
	latest := rows[len(rows)-1].Timestamp

	snapshot := real[0]
	out := make([]Point[P], 0, len(real))
	out = append(out, snapshot)

	if len(real) == 1 {
		// The value never changed over the observed span. Fill one point
		// per interval, anchored at the snapshot, through the horizon.
		n := syntheticCount(snapshot.Timestamp, latest, interval, margin)
		for i := 1; i <= n; i++ {
			out = append(out, Point[P]{
				Timestamp: snapshot.Timestamp.Add(time.Duration(i) * interval),
				Payload:   snapshot.Payload,
			})
		}
		return out
	}

	// Pre-snapshot filler aligns backward from the second real point, not
	// forward from the snapshot, so it shares a grid with real data.
	second := real[1]
	n := syntheticCount(snapshot.Timestamp, second.Timestamp, interval, margin)
	for i := n; i >= 1; i-- {
		out = append(out, Point[P]{
			Timestamp: second.Timestamp.Add(-time.Duration(i) * interval),
			Payload:   snapshot.Payload,
		})
	}

	for i := 1; i < len(real); i++ {
		cur := real[i]
		out = append(out, cur)

		next := latest
		if i+1 < len(real) {
			next = real[i+1].Timestamp
		}
		gap := next.Sub(cur.Timestamp)
		if float64(gap) <= float64(interval)*(1+margin) {
			continue
		}
		n := syntheticCount(cur.Timestamp, next, interval, margin)
		for j := 1; j <= n; j++ {
			out = append(out, Point[P]{
				Timestamp: cur.Timestamp.Add(time.Duration(j) * interval),
				Payload:   cur.Payload,
			})
		}
	}
	return out
}

// syntheticCount reports how many filler points belong strictly between t0
// and t1: floor((t1-t0+interval*margin)/interval) - 1. The margin term makes
// the end boundary inclusive under jitter, while the -1 excludes a point
// coinciding with t0.
func syntheticCount(t0, t1 time.Time, interval time.Duration, margin float64) int {
	gap := t1.Sub(t0)
	if gap <= 0 {
		return 0
	}
	n := int(math.Floor((float64(gap)+float64(interval)*margin)/float64(interval))) - 1
	if n < 0 {
		return 0
	}
	return n
}
