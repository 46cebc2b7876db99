package series_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coder/connstats/series"
)

func point(ts time.Time, bytes float64) series.Point[counters] {
	return series.Point[counters]{
		Timestamp: ts,
		Payload:   counters{Bytes: fptr(bytes)},
	}
}

func TestPartition(t *testing.T) {
	t.Parallel()

	const width = time.Minute
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("CardinalityMatchesEnds", func(t *testing.T) {
		t.Parallel()
		// A fully quiet period still yields one (empty) bucket per end.
		ends := []time.Time{
			t0.Add(width),
			t0.Add(2 * width),
			t0.Add(3 * width),
		}
		got := series.Partition[counters](nil, ends, width)
		require.Len(t, got, len(ends))
		for i, b := range got {
			require.Equal(t, ends[i], b.End)
			require.Empty(t, b.Points)
		}
	})

	t.Run("PointsLandInTheirWindow", func(t *testing.T) {
		t.Parallel()
		points := []series.Point[counters]{
			point(t0, 0),
			point(t0.Add(59*time.Second), 0),
			point(t0.Add(119*time.Second), 10),
		}
		ends := []time.Time{t0.Add(width), t0.Add(2 * width)}
		got := series.Partition(points, ends, width)
		require.Len(t, got, 2)
		require.Len(t, got[0].Points, 2)
		require.Len(t, got[1].Points, 1)
		require.Equal(t, t0.Add(119*time.Second), got[1].Points[0].Timestamp)
	})

	t.Run("BoundaryPointConsumedByEarlierBucket", func(t *testing.T) {
		t.Parallel()
		points := []series.Point[counters]{point(t0.Add(width), 1)}
		ends := []time.Time{t0.Add(width), t0.Add(2 * width)}
		got := series.Partition(points, ends, width)
		require.Len(t, got[0].Points, 1)
		require.Empty(t, got[1].Points)
	})

	t.Run("StrayEarlyPointDropped", func(t *testing.T) {
		t.Parallel()
		// A point before the first bucket's implicit start is consumed but
		// not retained.
		points := []series.Point[counters]{
			point(t0.Add(-10*time.Minute), 1),
			point(t0.Add(30*time.Second), 2),
		}
		ends := []time.Time{t0.Add(width)}
		got := series.Partition(points, ends, width)
		require.Len(t, got, 1)
		require.Len(t, got[0].Points, 1)
		require.Equal(t, 2.0, *got[0].Points[0].Payload.Bytes)
	})

	t.Run("LatePointLeftForNextBucket", func(t *testing.T) {
		t.Parallel()
		points := []series.Point[counters]{
			point(t0.Add(30*time.Second), 1),
			point(t0.Add(90*time.Second), 2),
		}
		ends := []time.Time{t0.Add(width), t0.Add(2 * width)}
		got := series.Partition(points, ends, width)
		require.Len(t, got[0].Points, 1)
		require.Len(t, got[1].Points, 1)
	})

	t.Run("RegressingEndYieldsEmptyBucket", func(t *testing.T) {
		t.Parallel()
		// Caller contract violation: ends must be non-decreasing. The
		// cursor never rewinds, so the bad bucket is simply empty.
		points := []series.Point[counters]{
			point(t0.Add(30*time.Second), 1),
			point(t0.Add(90*time.Second), 2),
		}
		ends := []time.Time{t0.Add(2 * width), t0.Add(width)}
		got := series.Partition(points, ends, width)
		require.Len(t, got, 2)
		require.Len(t, got[0].Points, 1)
		require.Empty(t, got[1].Points)
	})
}
