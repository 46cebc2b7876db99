package series_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coder/connstats/series"
)

// TestPipeline runs the full normalize → partition → aggregate chain over a
// short subscription: a zero snapshot, one real update 119s in, graphed as
// two 60s buckets.
func TestPipeline(t *testing.T) {
	t.Parallel()

	const (
		interval = time.Minute
		margin   = 0.10
		width    = time.Minute
	)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rows := []series.Row[counters]{
		data(t0, 0),
		data(t0.Add(119*time.Second), 10),
		progress(t0.Add(119 * time.Second)),
	}

	points := series.Normalize(rows, interval, margin)
	require.Len(t, points, 3)
	require.Equal(t, t0.Add(59*time.Second), points[1].Timestamp)
	require.Equal(t, 0.0, *points[1].Payload.Bytes)

	ends := []time.Time{t0.Add(width), t0.Add(2 * width)}
	buckets := series.Partition(points, ends, width)
	require.Len(t, buckets, 2)
	require.Len(t, buckets[0].Points, 2)
	require.Len(t, buckets[1].Points, 1)

	records := series.Aggregate(buckets, bytesRate)
	require.Len(t, records, 2)

	// Bucket 1 spans the snapshot and the synthetic fill, both zero.
	require.NotNil(t, records[0].Fields)
	require.Zero(t, *records[0].Fields)

	// Bucket 2 has one point; its baseline is bucket 1's last point, 60s
	// earlier: 10 bytes over 60s.
	require.NotNil(t, records[1].Fields)
	require.InDelta(t, 10.0/60.0, *records[1].Fields, 1e-9)

	// Axis ticks come from the raw value domain, not the bucketed series.
	ticks := series.Ticks(0, 10, 5)
	require.Equal(t, 2.5, ticks.Step)
	require.Equal(t, []float64{0, 2.5, 5, 7.5, 10}, ticks.Ticks)
}
