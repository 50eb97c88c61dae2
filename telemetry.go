package sdk

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/appdock/appdock/sdk/go/transport"
)

// TelemetryHooks expose observability callbacks without forcing dependencies on the caller.
type TelemetryHooks struct {
	// OnHTTPRequest fires before the HTTP request is sent.
	OnHTTPRequest func(ctx context.Context, req *http.Request)
	// OnHTTPResponse fires after the request completes (even when err != nil).
	OnHTTPResponse func(ctx context.Context, req *http.Request, resp *http.Response, err error, latency time.Duration)
	// OnLogEntry allows callers to capture SDK log events, absorbed failures included.
	OnLogEntry func(ctx context.Context, entry LogEntry)
	// OnMetric records lightweight counters/gauges for observability dashboards.
	OnMetric func(ctx context.Context, metric Metric)
}

// LogLevel encodes the severity for log hooks.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry captures structured log details for SDK consumers.
type LogEntry struct {
	Level   LogLevel
	Message string
	Fields  map[string]any
}

// Metric represents a single observability datapoint.
type Metric struct {
	Name   string
	Value  float64
	Labels map[string]string
}

// telemetry fans SDK diagnostics out to zerolog and the caller's hooks.
type telemetry struct {
	hooks  TelemetryHooks
	logger zerolog.Logger
}

func (t telemetry) log(ctx context.Context, level LogLevel, msg string, err error, fields map[string]any) {
	var event *zerolog.Event
	switch level {
	case LogLevelDebug:
		event = t.logger.Debug()
	case LogLevelWarn:
		event = t.logger.Warn()
	case LogLevelError:
		event = t.logger.Error()
	default:
		event = t.logger.Info()
	}
	event = addTraceInfo(ctx, event)
	if err != nil {
		event = event.Err(err)
	}
	event.Fields(fields).Msg(msg)

	if t.hooks.OnLogEntry == nil {
		return
	}
	entryFields := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		entryFields[k] = v
	}
	if err != nil {
		entryFields["error"] = err.Error()
	}
	t.hooks.OnLogEntry(ctx, LogEntry{Level: level, Message: msg, Fields: entryFields})
}

func (t telemetry) metric(ctx context.Context, name string, value float64, labels map[string]string) {
	if t.hooks.OnMetric == nil {
		return
	}
	t.hooks.OnMetric(ctx, Metric{Name: name, Value: value, Labels: labels})
}

// transportHooks adapts the HTTP hooks for the default transport and records
// request latency.
func (t telemetry) transportHooks() transport.Hooks {
	return transport.Hooks{
		OnRequest: func(ctx context.Context, req *http.Request) {
			if t.hooks.OnHTTPRequest != nil {
				t.hooks.OnHTTPRequest(ctx, req)
			}
			t.log(ctx, LogLevelDebug, "http_request", nil, map[string]any{
				"method": req.Method,
				"path":   req.URL.Path,
			})
		},
		OnResponse: func(ctx context.Context, req *http.Request, resp *http.Response, err error, latency time.Duration) {
			if t.hooks.OnHTTPResponse != nil {
				t.hooks.OnHTTPResponse(ctx, req, resp, err, latency)
			}
			t.metric(ctx, "sdk_http_request_latency_ms", float64(latency.Milliseconds()), map[string]string{
				"method": req.Method,
				"path":   req.URL.Path,
			})
		},
	}
}
