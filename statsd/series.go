package statsd

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cdr.dev/slog"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/coder/connstats"
	"github.com/coder/connstats/series"
	"github.com/coder/connstats/statsd/httpapi"
)

const defaultTickCount = 6

func (api *API) computeSeries(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req connstats.ComputeRequest
	if !httpapi.Read(ctx, rw, r, &req) {
		return
	}

	var validations []httpapi.Error
	if !req.Kind.Valid() {
		validations = append(validations, httpapi.Error{
			Field:  "kind",
			Detail: "Must be \"source\" or \"sink\".",
		})
	}
	if req.BucketWidthMS <= 0 {
		validations = append(validations, httpapi.Error{
			Field:  "bucket_width_ms",
			Detail: "Must be a positive duration in milliseconds.",
		})
	}
	if req.IntervalMS < 0 {
		validations = append(validations, httpapi.Error{
			Field:  "interval_ms",
			Detail: "Must not be negative.",
		})
	}
	if len(validations) > 0 {
		httpapi.Write(ctx, rw, http.StatusBadRequest, httpapi.Response{
			Message:     "Invalid series request.",
			Validations: validations,
		})
		return
	}

	resp := connstats.Compute(req)
	api.metrics.seriesComputed.Inc()
	httpapi.Write(ctx, rw, http.StatusOK, resp)
}

func (api *API) axisTicks(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var validations []httpapi.Error
	parseFloat := func(name string) float64 {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			validations = append(validations, httpapi.Error{
				Field:  name,
				Detail: "Must be a valid number.",
			})
		}
		return v
	}
	min := parseFloat("min")
	max := parseFloat("max")

	count := defaultTickCount
	if raw := q.Get("count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			validations = append(validations, httpapi.Error{
				Field:  "count",
				Detail: "Must be a positive integer.",
			})
		} else {
			count = v
		}
	}
	if len(validations) > 0 {
		httpapi.Write(ctx, rw, http.StatusBadRequest, httpapi.Response{
			Message:     "Query parameters have invalid values.",
			Validations: validations,
		})
		return
	}

	httpapi.Write(ctx, rw, http.StatusOK, series.Ticks(min, max, count))
}

func (api *API) postRows(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := connectorParam(rw, r)
	if !ok {
		return
	}

	var rows []connstats.Row
	if !httpapi.Read(ctx, rw, r, &rows) {
		return
	}
	if len(rows) == 0 {
		httpapi.Write(ctx, rw, http.StatusBadRequest, httpapi.Response{
			Message: "No rows provided.",
		})
		return
	}

	api.Feed.Append(id, rows)
	api.metrics.rowsIngested.Add(float64(len(rows)))
	rw.WriteHeader(http.StatusNoContent)
}

func (api *API) connectorRows(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := connectorParam(rw, r)
	if !ok {
		return
	}

	rows, ok := api.Feed.Snapshot(id)
	if !ok {
		// Streams are created on first append or watch; reading one that
		// never existed is a 404, not an empty list.
		httpapi.ResourceNotFound(rw)
		return
	}
	httpapi.Write(ctx, rw, http.StatusOK, rows)
}

func (api *API) watchConnector(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := connectorParam(rw, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(rw, r, nil)
	if err != nil {
		httpapi.Write(ctx, rw, http.StatusBadRequest, httpapi.Response{
			Message: "Failed to accept websocket.",
			Detail:  err.Error(),
		})
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sub := api.Feed.Subscribe(id)
	defer sub.Close()

	api.metrics.watchConnections.Inc()
	defer api.metrics.watchConnections.Dec()

	api.Logger.Debug(ctx, "watch started", slog.F("connector_id", id))
	for {
		select {
		case <-ctx.Done():
			return
		case snap, open := <-sub.Chan():
			if !open {
				// Feed shut down.
				return
			}
			if err := wsjson.Write(ctx, conn, snap); err != nil {
				api.Logger.Debug(ctx, "watch write failed",
					slog.F("connector_id", id),
					slog.Error(err),
				)
				return
			}
		}
	}
}

func connectorParam(rw http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "connector"))
	if err != nil {
		httpapi.Write(r.Context(), rw, http.StatusBadRequest, httpapi.Response{
			Message: "Invalid connector ID.",
			Detail:  err.Error(),
		})
		return uuid.UUID{}, false
	}
	return id, true
}
