// Package httpclient builds the instrumented HTTP clients used by components
// that call remote APIs.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBody caps how much of a response body is read into memory.
const maxBody = 32 << 20

// New returns a client whose transport records an OpenTelemetry client span
// per request. A zero timeout leaves cancellation to the caller's context.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Headers flattens single-valued headers to strings and keeps multi-valued
// headers as lists.
func (r *Response) Headers() map[string]any {
	out := make(map[string]any, len(r.Header))
	for k, v := range r.Header {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		vals := make([]any, len(v))
		for i, hv := range v {
			vals[i] = hv
		}
		out[k] = vals
	}
	return out
}

// DecodedBody returns the body parsed as JSON, or as a string when it is not
// valid JSON.
func (r *Response) DecodedBody() any {
	var v any
	if json.Unmarshal(r.Body, &v) == nil {
		return v
	}
	return string(r.Body)
}

// Request describes one call.
type Request struct {
	Method  string
	URL     string
	Header  map[string]string
	JSON    any    // marshalled as the request body when non-nil
	Body    []byte // raw body, used when JSON is nil
	Timeout time.Duration
}

// Do sends req and reads the response. Non-2xx statuses are not errors;
// callers inspect StatusCode.
func Do(ctx context.Context, c *http.Client, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case req.Body != nil:
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
