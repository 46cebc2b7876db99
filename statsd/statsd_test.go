package statsd_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/coder/connstats"
	"github.com/coder/connstats/series"
	"github.com/coder/connstats/statsd"
	"github.com/coder/connstats/statsd/httpapi"
	"github.com/coder/connstats/statssdk"
	"github.com/coder/connstats/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, testutil.GoleakOptions...)
}

func newServer(t *testing.T) (*statsd.API, *statssdk.Client) {
	t.Helper()
	api := statsd.New(statsd.Options{
		Logger:        testutil.Logger(t),
		FlushInterval: testutil.IntervalFast,
	})
	t.Cleanup(api.Close)

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := statssdk.New(srv.URL)
	require.NoError(t, err)
	client.HTTPClient = srv.Client()
	client.Logger = testutil.Logger(t)
	return api, client
}

func TestComputeSeriesEndpoint(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("OK", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		zero, ten := 0.0, 10.0
		resp, err := client.ComputeSeries(ctx, connstats.ComputeRequest{
			Kind: connstats.ConnectorKindSource,
			Rows: []connstats.Row{
				{Timestamp: t0, Payload: connstats.Counters{BytesReceived: &zero}},
				{Timestamp: t0.Add(119 * time.Second), Payload: connstats.Counters{BytesReceived: &ten}},
				{Timestamp: t0.Add(119 * time.Second), Progress: true},
			},
			IntervalMS:    series.DefaultInterval.Milliseconds(),
			BucketWidthMS: time.Minute.Milliseconds(),
			BucketEnds:    []time.Time{t0.Add(time.Minute), t0.Add(2 * time.Minute)},
		})
		require.NoError(t, err)
		require.Len(t, resp.Records, 2)
		require.NotNil(t, resp.Records[1].Source)
		require.NotNil(t, resp.Records[1].Source.BytesPerSecond)
		require.InDelta(t, 10.0/60.0, *resp.Records[1].Source.BytesPerSecond, 1e-9)
	})

	t.Run("EmptyRowsStillAligned", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		resp, err := client.ComputeSeries(ctx, connstats.ComputeRequest{
			Kind:          connstats.ConnectorKindSink,
			BucketWidthMS: time.Minute.Milliseconds(),
			BucketEnds:    []time.Time{t0.Add(time.Minute), t0.Add(2 * time.Minute)},
		})
		require.NoError(t, err)
		require.Len(t, resp.Records, 2)
		require.NotNil(t, resp.Records[0].Sink)
		require.Nil(t, resp.Records[0].Sink.BytesCommittedPerSecond)
	})

	t.Run("BadKind", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		_, err := client.ComputeSeries(ctx, connstats.ComputeRequest{
			Kind:          "pipe",
			BucketWidthMS: time.Minute.Milliseconds(),
		})
		var apiErr *httpapi.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Len(t, apiErr.Validations, 1)
		require.Equal(t, "kind", apiErr.Validations[0].Field)
	})

	t.Run("MissingBucketWidth", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		_, err := client.ComputeSeries(ctx, connstats.ComputeRequest{
			Kind: connstats.ConnectorKindSource,
		})
		var apiErr *httpapi.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
}

func TestTicksEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("OK", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		resp, err := client.Ticks(ctx, 0, 3, 4)
		require.NoError(t, err)
		require.Equal(t, 1.0, resp.Step)
		require.Equal(t, []float64{0, 1, 2, 3}, resp.Ticks)
	})

	t.Run("FlatDomain", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		resp, err := client.Ticks(ctx, 0, 0, 4)
		require.NoError(t, err)
		require.Zero(t, resp.Step)
		require.Equal(t, []float64{0}, resp.Ticks)
	})

	t.Run("BadParams", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		res, err := client.Request(ctx, http.MethodGet, "/api/v0/ticks?min=a&max=b", nil)
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestRowsAndWatch(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("WatchReceivesSnapshots", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitLong)

		id := uuid.New()
		snapshots, err := client.WatchConnector(ctx, id)
		require.NoError(t, err)

		// Initial snapshot is empty: the stream exists but has no rows.
		snap := <-snapshots
		require.Empty(t, snap)

		one := 1.0
		err = client.AppendRows(ctx, id, []connstats.Row{
			{Timestamp: t0, Payload: connstats.Counters{BytesReceived: &one}},
			{Timestamp: t0.Add(time.Minute), Progress: true},
		})
		require.NoError(t, err)

		// A complete snapshot arrives, not a diff.
		for snap = range snapshots {
			if len(snap) > 0 {
				break
			}
		}
		require.Len(t, snap, 2)
		require.Equal(t, t0, snap[0].Timestamp)
		require.True(t, snap[1].Progress)
	})

	t.Run("ReconnectResendsCompleteSnapshot", func(t *testing.T) {
		t.Parallel()
		api := statsd.New(statsd.Options{
			Logger:        testutil.Logger(t),
			FlushInterval: testutil.IntervalFast,
		})
		t.Cleanup(api.Close)
		srv := httptest.NewServer(api)
		t.Cleanup(srv.Close)
		client, err := statssdk.New(srv.URL)
		require.NoError(t, err)
		client.HTTPClient = srv.Client()
		client.Logger = testutil.Logger(t)

		ctx := testutil.Context(t, testutil.WaitLong)
		id := uuid.New()
		one := 1.0
		err = client.AppendRows(ctx, id, []connstats.Row{
			{Timestamp: t0, Payload: connstats.Counters{BytesReceived: &one}},
		})
		require.NoError(t, err)

		snapshots, err := client.WatchConnector(ctx, id)
		require.NoError(t, err)
		snap := <-snapshots
		require.Len(t, snap, 1)

		// Drop the websocket out from under the watcher. The server keeps
		// running, so the watcher redials the same stream.
		srv.CloseClientConnections()

		two := 2.0
		err = client.AppendRows(ctx, id, []connstats.Row{
			{Timestamp: t0.Add(time.Minute), Payload: connstats.Counters{BytesReceived: &two}},
		})
		require.NoError(t, err)

		// After reconnecting, the delivery is the whole stream from the
		// beginning, not a diff picking up where the old connection died.
		for snap = range snapshots {
			if len(snap) == 2 {
				break
			}
		}
		require.Len(t, snap, 2)
		require.Equal(t, t0, snap[0].Timestamp)
		require.Equal(t, t0.Add(time.Minute), snap[1].Timestamp)
	})

	t.Run("GetRows", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		id := uuid.New()
		one := 1.0
		err := client.AppendRows(ctx, id, []connstats.Row{
			{Timestamp: t0, Payload: connstats.Counters{BytesReceived: &one}},
		})
		require.NoError(t, err)

		rows, err := client.ConnectorRows(ctx, id)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, t0, rows[0].Timestamp)
	})

	t.Run("GetRowsUnknownConnector", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		_, err := client.ConnectorRows(ctx, uuid.New())
		var apiErr *httpapi.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})

	t.Run("InvalidConnectorID", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		res, err := client.Request(ctx, http.MethodPost, "/api/v0/connectors/not-a-uuid/rows", []connstats.Row{})
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("EmptyRowsRejected", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitShort)

		err := client.AppendRows(ctx, uuid.New(), nil)
		var apiErr *httpapi.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("SnapshotRoundTripsPipeline", func(t *testing.T) {
		t.Parallel()
		_, client := newServer(t)
		ctx := testutil.Context(t, testutil.WaitLong)

		id := uuid.New()
		zero, ten := 0.0, 10.0
		err := client.AppendRows(ctx, id, []connstats.Row{
			{Timestamp: t0, Payload: connstats.Counters{BytesReceived: &zero}},
			{Timestamp: t0.Add(119 * time.Second), Payload: connstats.Counters{BytesReceived: &ten}},
			{Timestamp: t0.Add(119 * time.Second), Progress: true},
		})
		require.NoError(t, err)

		snapshots, err := client.WatchConnector(ctx, id)
		require.NoError(t, err)
		snap := <-snapshots
		require.Len(t, snap, 3)

		resp, err := client.ComputeSeries(ctx, connstats.ComputeRequest{
			Kind:          connstats.ConnectorKindSource,
			Rows:          snap,
			BucketWidthMS: time.Minute.Milliseconds(),
			BucketEnds:    []time.Time{t0.Add(time.Minute), t0.Add(2 * time.Minute)},
		})
		require.NoError(t, err)
		require.Len(t, resp.Records, 2)
		require.InDelta(t, 10.0/60.0, *resp.Records[1].Source.BytesPerSecond, 1e-9)
	})
}
