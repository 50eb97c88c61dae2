package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appdock/appdock/sdk/go/headers"
)

const defaultUserAgent = "appdock-sdk-go"

// maxResponseBytes bounds how much of a response body is buffered.
const maxResponseBytes = 4 << 20

// Hooks expose HTTP observability callbacks without forcing dependencies on the caller.
type Hooks struct {
	// OnRequest fires before the HTTP request is sent.
	OnRequest func(ctx context.Context, req *http.Request)
	// OnResponse fires after the request completes (even when err != nil).
	OnResponse func(ctx context.Context, req *http.Request, resp *http.Response, err error, latency time.Duration)
}

// Config wires the HTTP client, user agent and hooks for HTTPTransport.
type Config struct {
	HTTPClient *http.Client
	UserAgent  string
	Hooks      Hooks
}

// HTTPTransport sends JSON requests over net/http.
type HTTPTransport struct {
	httpClient *http.Client
	userAgent  string
	hooks      Hooks
}

// NewHTTPTransport returns a transport with sane defaults.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &HTTPTransport{httpClient: httpClient, userAgent: ua, hooks: cfg.Hooks}
}

// Send performs req and reads the whole response body.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := t.newJSONRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, httpReq)
	}
	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, httpReq, resp, err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // best-effort cleanup on return
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("transport: read %s %s: %w", req.Method, httpReq.URL.Path, err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (t *HTTPTransport) newJSONRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		encoded, err := encodeBody(req.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(headers.RequestID, requestID)
	if token := strings.TrimSpace(req.BearerToken); token != "" {
		httpReq.Header.Set(headers.Authorization, "Bearer "+token)
	}
	injectTraceparent(ctx, httpReq)
	return httpReq, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(body)
	}
}
