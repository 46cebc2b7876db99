// Package statssdk is the Go client for the connector stats server.
package statssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"cdr.dev/slog"
	"golang.org/x/xerrors"

	"github.com/coder/connstats"
	"github.com/coder/connstats/statsd/httpapi"
)

// Client talks to one stats server.
type Client struct {
	URL        *url.URL
	HTTPClient *http.Client
	Logger     slog.Logger
}

// New parses serverURL and returns a client using http.DefaultClient.
func New(serverURL string) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, xerrors.Errorf("parse server url: %w", err)
	}
	return &Client{
		URL:        u,
		HTTPClient: http.DefaultClient,
	}, nil
}

// Request performs an HTTP request against the server. A non-nil body is
// encoded as JSON. The caller must close the response body.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	u, err := c.URL.Parse(path)
	if err != nil {
		return nil, xerrors.Errorf("parse path: %w", err)
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, xerrors.Errorf("encode body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), &buf)
	if err != nil {
		return nil, xerrors.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("execute request: %w", err)
	}
	return res, nil
}

// ComputeSeries runs the bucketing pipeline server-side.
func (c *Client) ComputeSeries(ctx context.Context, req connstats.ComputeRequest) (connstats.ComputeResponse, error) {
	res, err := c.Request(ctx, http.MethodPost, "/api/v0/series", req)
	if err != nil {
		return connstats.ComputeResponse{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return connstats.ComputeResponse{}, httpapi.ReadBodyAsError(res)
	}
	var resp connstats.ComputeResponse
	return resp, json.NewDecoder(res.Body).Decode(&resp)
}

// Ticks computes "nice" axis ticks for a value domain.
func (c *Client) Ticks(ctx context.Context, min, max float64, count int) (connstats.TicksResponse, error) {
	q := url.Values{}
	q.Set("min", strconv.FormatFloat(min, 'f', -1, 64))
	q.Set("max", strconv.FormatFloat(max, 'f', -1, 64))
	q.Set("count", strconv.Itoa(count))
	res, err := c.Request(ctx, http.MethodGet, "/api/v0/ticks?"+q.Encode(), nil)
	if err != nil {
		return connstats.TicksResponse{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return connstats.TicksResponse{}, httpapi.ReadBodyAsError(res)
	}
	var resp connstats.TicksResponse
	return resp, json.NewDecoder(res.Body).Decode(&resp)
}

// ConnectorRows fetches the current snapshot of a connector's raw row
// stream. Unknown connectors are a 404 APIError.
func (c *Client) ConnectorRows(ctx context.Context, connector uuid.UUID) ([]connstats.Row, error) {
	res, err := c.Request(ctx, http.MethodGet, "/api/v0/connectors/"+connector.String()+"/rows", nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, httpapi.ReadBodyAsError(res)
	}
	var rows []connstats.Row
	return rows, json.NewDecoder(res.Body).Decode(&rows)
}

// AppendRows pushes raw rows onto a connector's live feed.
func (c *Client) AppendRows(ctx context.Context, connector uuid.UUID, rows []connstats.Row) error {
	res, err := c.Request(ctx, http.MethodPost, "/api/v0/connectors/"+connector.String()+"/rows", rows)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		return httpapi.ReadBodyAsError(res)
	}
	return nil
}
