package series

import "math"

// tickEpsilon absorbs float rounding when aligning domain bounds to step
// multiples, so e.g. 1/(1/3) landing at 3.0000000000000004 still aligns to 3
// steps rather than 4.
const tickEpsilon = 1e-9

// TickSpan is a "nice" axis labeling of a numeric domain: bounds aligned
// outward to step multiples and the evenly spaced tick values between them.
type TickSpan struct {
	AlignedMin float64   `json:"aligned_min"`
	AlignedMax float64   `json:"aligned_max"`
	Step       float64   `json:"step"`
	Ticks      []float64 `json:"ticks"`
}

// Ticks computes count evenly spaced axis ticks covering [min, max]. It has
// no dependency on the rest of the pipeline; the caller feeds it the min and
// max of the raw, pre-bucketed values.
//
// A flat domain (max == min, including both zero) yields a single tick with
// a zero step so a flat series still renders one reference line. Otherwise
// min is aligned downward and max upward to multiples of the minimum step
// (max-min)/(count-1), and the final step is rounded up in units of the
// minimum step so the ticks never under-cover max.
func Ticks(min, max float64, count int) TickSpan {
	if count < 2 || max <= min {
		return TickSpan{
			AlignedMin: min,
			AlignedMax: min,
			Step:       0,
			Ticks:      []float64{min},
		}
	}

	minStep := (max - min) / float64(count-1)
	alignedMin := math.Floor(min/minStep+tickEpsilon) * minStep
	alignedMax := math.Ceil(max/minStep-tickEpsilon) * minStep
	step := math.Ceil((alignedMax-alignedMin)/float64(count-1)/minStep-tickEpsilon) * minStep

	ticks := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		tick := alignedMin + float64(i)*step
		// Collisions happen when the domain is very small.
		if len(ticks) > 0 && ticks[len(ticks)-1] == tick {
			continue
		}
		ticks = append(ticks, tick)
	}

	return TickSpan{
		AlignedMin: alignedMin,
		AlignedMax: alignedMax,
		Step:       step,
		Ticks:      ticks,
	}
}
