// Package series turns the raw, irregularly spaced update stream of a
// connector statistics subscription into an evenly bucketed, rate-annotated
// series suitable for graphing.
//
// The stream is an "upsert + progress" feed: a row either carries a new
// counter payload, or it is a progress marker asserting that no change
// happened up to its timestamp. The pipeline is Normalize, Partition,
// Aggregate, with Rate as the reducer primitive. Every function is a pure
// transform over its inputs; callers re-run the whole pipeline on each data
// refresh.
package series

import "time"

const (
	// DefaultInterval is how often the upstream collector is expected to
	// sample a new value.
	DefaultInterval = 60 * time.Second

	// DefaultVarianceMargin is the fraction of the collection interval
	// tolerated as timestamp jitter before two timestamps are considered
	// different slots.
	DefaultVarianceMargin = 0.10
)

// Row is one element of the raw input stream. Timestamps are non-decreasing
// across a stream; duplicates at the same collected instant are possible.
type Row[P any] struct {
	// Timestamp is the logical time of the observation. For progress rows it
	// means "data is current as of this time, nothing new".
	Timestamp time.Time `json:"timestamp"`
	// Progress reports whether this row is a progress marker. Progress rows
	// carry no usable payload.
	Progress bool `json:"progress,omitempty"`
	Payload  P    `json:"payload,omitempty"`
}

// Point is a normalized observation: always real or forward-filled data,
// never a progress marker.
type Point[P any] struct {
	Timestamp time.Time `json:"timestamp"`
	Payload   P         `json:"payload"`
}

// Bucket groups the points that fall within a fixed-width window identified
// by its end timestamp. Points may be empty.
type Bucket[P any] struct {
	End    time.Time  `json:"end"`
	Points []Point[P] `json:"points"`
}

// Record is one aggregated output row, positionally aligned with the bucket
// it was reduced from.
type Record[F any] struct {
	Timestamp time.Time `json:"timestamp"`
	Fields    F         `json:"fields"`
}

// Reducer collapses one bucket into output fields. start is the baseline
// observation for rate math; it is nil when no prior data exists, in which
// case the reducer must report indeterminate (nil) values rather than fail.
type Reducer[P, F any] func(start *Point[P], points []Point[P]) F
