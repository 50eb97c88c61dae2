package sdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/appdock/appdock/sdk/go/transport"
)

const testBaseURL = "https://api.test"

// routeTransport answers by method and path. The trust fetch runs
// concurrently with bootstrap, so a FIFO mock would be racy here.
type routeTransport struct {
	mu     sync.Mutex
	routes map[string]func(transport.Request) (*transport.Response, error)
	calls  []transport.Request
}

func newRouteTransport() *routeTransport {
	return &routeTransport{routes: make(map[string]func(transport.Request) (*transport.Response, error))}
}

func (rt *routeTransport) handle(method, path string, fn func(transport.Request) (*transport.Response, error)) *routeTransport {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.routes[method+" "+path] = fn
	return rt
}

func (rt *routeTransport) respond(method, path string, status int, body string) *routeTransport {
	return rt.handle(method, path, func(transport.Request) (*transport.Response, error) {
		return &transport.Response{Status: status, Header: http.Header{}, Body: []byte(body)}, nil
	})
}

func (rt *routeTransport) Send(_ context.Context, req transport.Request) (*transport.Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	rt.calls = append(rt.calls, req)
	fn := rt.routes[req.Method+" "+u.Path]
	rt.mu.Unlock()
	if fn == nil {
		return &transport.Response{
			Status: http.StatusNotFound,
			Header: http.Header{},
			Body:   []byte(`{"error":{"code":404,"message":"not found","status":"NOT_FOUND"}}`),
		}, nil
	}
	return fn(req)
}

func (rt *routeTransport) callsTo(method, path string) []transport.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var out []transport.Request
	for _, c := range rt.calls {
		u, err := url.Parse(c.URL)
		if err != nil {
			continue
		}
		if c.Method == method && u.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (rt *routeTransport) callsToPath(path string) int {
	n := 0
	for _, m := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete, http.MethodPost} {
		n += len(rt.callsTo(m, path))
	}
	return n
}

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".c2lnbmF0dXJl"
}

func newTestClient(t *testing.T, location string, tr transport.Transport, mutate ...func(*Config)) (*Client, *MemoryEnvironment) {
	t.Helper()
	env, err := NewMemoryEnvironment(location)
	require.NoError(t, err)
	cfg := Config{BaseURL: testBaseURL, Environment: env, Transport: tr}
	for _, fn := range mutate {
		fn(&cfg)
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client, env
}

// signedInClient initializes a client whose session is sealed for uid u1 and
// app id "notes".
func signedInClient(t *testing.T, tr *routeTransport) (*Client, string) {
	t.Helper()
	token := makeToken(t, map[string]any{"sub": "u1", "email": "a@b.com"})
	client, _ := newTestClient(t, "https://app.example.com/#token="+token, tr)
	require.NoError(t, client.Initialize(context.Background(), "notes"))
	require.NoError(t, client.WaitTrust(context.Background()))
	require.True(t, client.IsAuthenticated())
	return client, token
}
