// Package headers defines HTTP header constants used by the SDK transport and
// the test backend. This is the single source of truth for header names.
package headers

const (
	// RequestID is the header for request correlation. The transport sets a
	// fresh UUID on every request unless the caller supplied one.
	RequestID = "X-Appdock-Request-Id"

	// Traceparent carries the W3C trace context of the calling span.
	Traceparent = "Traceparent"

	// Authorization carries the session bearer token on document requests.
	Authorization = "Authorization"
)
