package transport

import (
	"context"
	"encoding/json"
	"sync"
)

// Mock is an in-memory transport for unit tests. It replays queued
// responses in order and records every request it receives.
type Mock struct {
	mu    sync.Mutex
	queue []mockResult
	calls []Request
}

// MockError is returned when a mock transport runs out of queued responses.
type MockError struct {
	Reason string
}

func (e MockError) Error() string { return "mock transport: " + e.Reason }

type mockResult struct {
	resp *Response
	err  error
}

// NewMock creates an empty mock transport.
func NewMock() *Mock {
	return &Mock{}
}

// WithResponse enqueues a response whose body is body encoded as JSON
// (or used verbatim when it is a string or []byte).
func (m *Mock) WithResponse(status int, body any) *Mock {
	var data []byte
	switch b := body.(type) {
	case nil:
	case string:
		data = []byte(b)
	case []byte:
		data = b
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			panic("mock transport: encode body: " + err.Error())
		}
		data = encoded
	}
	m.enqueue(&Response{Status: status, Body: data}, nil)
	return m
}

// WithError enqueues a transport-level failure.
func (m *Mock) WithError(err error) *Mock {
	m.enqueue(nil, err)
	return m
}

func (m *Mock) enqueue(resp *Response, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{resp: resp, err: err})
}

// Send records req and returns the next queued result.
func (m *Mock) Send(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.queue) == 0 {
		return nil, MockError{Reason: "no responses configured"}
	}
	res := m.queue[0]
	m.queue = m.queue[1:]
	if res.err != nil {
		return nil, res.err
	}
	respCopy := *res.resp
	return &respCopy, nil
}

// Calls returns a copy of the recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// CallCount returns how many requests were sent.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
