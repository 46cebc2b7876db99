// Package httpapi provides the standardized JSON request/response helpers
// used by the stats server.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/xerrors"
)

// Response is the generic error/status envelope. Message is a human-readable
// sentence; Detail carries the underlying error text when there is one.
type Response struct {
	Message     string  `json:"message"`
	Detail      string  `json:"detail,omitempty"`
	Validations []Error `json:"validations,omitempty"`
}

// Error is a scoped validation error for one request field.
type Error struct {
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

// Write encodes the response as JSON before writing the status code, so an
// encoding failure can still change the response status.
func Write(_ context.Context, rw http.ResponseWriter, status int, response any) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(response); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = rw.Write(buf.Bytes())
}

// Read decodes the request body into value and replies with a 400 on
// failure. It reports whether the caller may proceed.
func Read(ctx context.Context, rw http.ResponseWriter, r *http.Request, value any) bool {
	err := json.NewDecoder(r.Body).Decode(value)
	if err != nil {
		Write(ctx, rw, http.StatusBadRequest, Response{
			Message: "Request body must be valid JSON.",
			Detail:  err.Error(),
		})
		return false
	}
	return true
}

// ResourceNotFound is the generic 404 for unknown connectors.
func ResourceNotFound(rw http.ResponseWriter) {
	Write(context.Background(), rw, http.StatusNotFound, Response{
		Message: "Resource not found or you do not have access to this resource",
	})
}

// APIError is the client-side representation of a non-2xx response.
type APIError struct {
	Response
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// ReadBodyAsError decodes a non-2xx response body into an *APIError.
func ReadBodyAsError(res *http.Response) error {
	var apiErr APIError
	apiErr.StatusCode = res.StatusCode
	if err := json.NewDecoder(res.Body).Decode(&apiErr.Response); err != nil {
		return xerrors.Errorf("decode body as error (status %d): %w", res.StatusCode, err)
	}
	return &apiErr
}
