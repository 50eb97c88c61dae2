// Package transport is the HTTP collaborator used by the SDK for the trust
// list, the identity lookup and the document store.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Request describes one JSON call.
type Request struct {
	Method string
	URL    string
	// Body is JSON-encoded unless it is already a []byte or json.RawMessage.
	Body any
	// BearerToken, when set, is sent as the Authorization header.
	BearerToken string
	// RequestID overrides the generated correlation id.
	RequestID string
}

// Response is a fully read HTTP response. Non-2xx statuses are not errors at
// this level; callers decide what a 404 means for them.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// JSON decodes the body into v. An empty body leaves v untouched.
func (r *Response) JSON(v any) error {
	if r == nil {
		return errors.New("transport: nil response")
	}
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Transport sends JSON requests.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, req Request) (*Response, error)

// Send calls f.
func (f Func) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
