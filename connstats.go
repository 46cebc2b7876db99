// Package connstats holds the wire types shared by the stats server, the
// SDK, and the CLI: the connector counter payload, the request/response
// envelopes, and the reducers the console graphs are built from.
package connstats

import (
	"time"

	"github.com/coder/connstats/series"
)

// ConnectorKind selects which counters a connector reports and which
// reducer applies to its series.
type ConnectorKind string

const (
	ConnectorKindSource ConnectorKind = "source"
	ConnectorKindSink   ConnectorKind = "sink"
)

func (k ConnectorKind) Valid() bool {
	switch k {
	case ConnectorKindSource, ConnectorKindSink:
		return true
	default:
		return false
	}
}

// Counters is one sampled value of a connector's monotonic counters. Fields
// are nil when the connector kind does not report them or the collector has
// not observed them yet; nil is "no data", never zero.
type Counters struct {
	// Source counters.
	MessagesReceived *float64 `json:"messages_received,omitempty"`
	BytesReceived    *float64 `json:"bytes_received,omitempty"`
	// Sink counters. Staged counts what has been written upstream but not
	// yet durably committed.
	MessagesStaged    *float64 `json:"messages_staged,omitempty"`
	MessagesCommitted *float64 `json:"messages_committed,omitempty"`
	BytesStaged       *float64 `json:"bytes_staged,omitempty"`
	BytesCommitted    *float64 `json:"bytes_committed,omitempty"`
	// Offset tracking, used for lag. OffsetKnown is the newest offset the
	// connector knows exists; OffsetCommitted is how far it has processed.
	OffsetKnown     *float64 `json:"offset_known,omitempty"`
	OffsetCommitted *float64 `json:"offset_committed,omitempty"`
}

// Row is the concrete stream row exchanged over the wire.
type Row = series.Row[Counters]

// Point is the concrete normalized point for Counters payloads.
type Point = series.Point[Counters]

// ComputeRequest asks the server to run the full pipeline over a row
// snapshot. BucketEnds are derived by the caller by walking from the
// window's padded start to its end in BucketWidthMS increments.
type ComputeRequest struct {
	Kind ConnectorKind `json:"kind"`
	Rows []Row         `json:"rows"`
	// IntervalMS is the upstream collection interval. Zero means
	// series.DefaultInterval.
	IntervalMS int64 `json:"interval_ms,omitempty"`
	// VarianceMargin defaults to series.DefaultVarianceMargin when zero.
	VarianceMargin float64     `json:"variance_margin,omitempty"`
	BucketWidthMS  int64       `json:"bucket_width_ms"`
	BucketEnds     []time.Time `json:"bucket_ends"`
}

// SeriesRecord is one aggregated bucket. Exactly one of Source or Sink is
// set, matching the request's kind. Nil rate fields mean "insufficient
// data" and must render as gaps, not zeroes.
type SeriesRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Source    *SourceRateFields `json:"source,omitempty"`
	Sink      *SinkRateFields   `json:"sink,omitempty"`
}

type ComputeResponse struct {
	Records []SeriesRecord `json:"records"`
}

// TicksResponse is the axis tick endpoint's body.
type TicksResponse = series.TickSpan
