package connstats

import (
	"time"

	"github.com/coder/connstats/series"
)

// SourceRateFields is the per-bucket output for source connectors.
type SourceRateFields struct {
	MessagesPerSecond *float64 `json:"messages_per_second"`
	BytesPerSecond    *float64 `json:"bytes_per_second"`
	// Lag is offset known minus offset committed at the bucket's last
	// observation. It is a level, not a rate.
	Lag *float64 `json:"lag"`
}

// SinkRateFields is the per-bucket output for sink connectors.
type SinkRateFields struct {
	MessagesStagedPerSecond    *float64 `json:"messages_staged_per_second"`
	MessagesCommittedPerSecond *float64 `json:"messages_committed_per_second"`
	BytesStagedPerSecond       *float64 `json:"bytes_staged_per_second"`
	BytesCommittedPerSecond    *float64 `json:"bytes_committed_per_second"`
}

// SourceRates reduces a bucket of source counters into per-second rates.
func SourceRates(start *Point, points []Point) SourceRateFields {
	end := series.Last(points)
	f := SourceRateFields{
		MessagesPerSecond: series.Rate(start, end, func(c Counters) *float64 { return c.MessagesReceived }),
		BytesPerSecond:    series.Rate(start, end, func(c Counters) *float64 { return c.BytesReceived }),
	}
	if end != nil && end.Payload.OffsetKnown != nil && end.Payload.OffsetCommitted != nil {
		lag := *end.Payload.OffsetKnown - *end.Payload.OffsetCommitted
		if lag < 0 {
			lag = 0
		}
		f.Lag = &lag
	}
	return f
}

// SinkRates reduces a bucket of sink counters into per-second rates.
func SinkRates(start *Point, points []Point) SinkRateFields {
	end := series.Last(points)
	return SinkRateFields{
		MessagesStagedPerSecond:    series.Rate(start, end, func(c Counters) *float64 { return c.MessagesStaged }),
		MessagesCommittedPerSecond: series.Rate(start, end, func(c Counters) *float64 { return c.MessagesCommitted }),
		BytesStagedPerSecond:       series.Rate(start, end, func(c Counters) *float64 { return c.BytesStaged }),
		BytesCommittedPerSecond:    series.Rate(start, end, func(c Counters) *float64 { return c.BytesCommitted }),
	}
}

// Compute runs the whole pipeline for a request, returning one record per
// requested bucket end.
func Compute(req ComputeRequest) ComputeResponse {
	interval := series.DefaultInterval
	if req.IntervalMS > 0 {
		interval = msToDuration(req.IntervalMS)
	}
	width := msToDuration(req.BucketWidthMS)

	points := series.Normalize(req.Rows, interval, req.VarianceMargin)
	buckets := series.Partition(points, req.BucketEnds, width)

	records := make([]SeriesRecord, 0, len(buckets))
	switch req.Kind {
	case ConnectorKindSink:
		for _, r := range series.Aggregate(buckets, SinkRates) {
			fields := r.Fields
			records = append(records, SeriesRecord{Timestamp: r.Timestamp, Sink: &fields})
		}
	default:
		for _, r := range series.Aggregate(buckets, SourceRates) {
			fields := r.Fields
			records = append(records, SeriesRecord{Timestamp: r.Timestamp, Source: &fields})
		}
	}
	return ComputeResponse{Records: records}
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
