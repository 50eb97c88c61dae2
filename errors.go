package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/appdock/appdock/sdk/go/headers"
	"github.com/appdock/appdock/sdk/go/transport"
)

// ConfigurationError reports invalid SDK configuration, such as a bad
// application id. It is returned before any I/O.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sdk: invalid %s: %s", e.Field, e.Reason)
}

// PreconditionError reports an app data call made without a signed-in user
// or a configured application id. No request is sent.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("sdk: %s app data: %s", e.Op, e.Reason)
}

// SizeLimitError reports a document whose encoded body exceeds the limit.
// No request is sent.
type SizeLimitError struct {
	Op    string
	Size  int
	Limit int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("sdk: %s app data: document is %d bytes, limit is %d", e.Op, e.Size, e.Limit)
}

// StoreError reports a failed app data request. Status is zero when the
// request never got a response.
type StoreError struct {
	Op     string
	Status int
	Err    error
}

func (e *StoreError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("sdk: %s app data: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sdk: %s app data: status %d: %v", e.Op, e.Status, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// APIError captures the error envelope returned by the backing services.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

// Error implements the error interface.
func (e APIError) Error() string {
	if e.Code == "" {
		e.Code = "UNKNOWN"
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("%s (%d)", e.Code, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func decodeAPIError(resp *transport.Response) APIError {
	apiErr := APIError{Status: resp.Status, RequestID: resp.Header.Get(headers.RequestID)}
	if len(resp.Body) == 0 {
		apiErr.Message = http.StatusText(resp.Status)
		return apiErr
	}
	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(resp.Body))
		return apiErr
	}
	apiErr.Code = payload.Error.Status
	apiErr.Message = payload.Error.Message
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.Status)
	}
	return apiErr
}

func newStoreError(op string, resp *transport.Response) *StoreError {
	return &StoreError{Op: op, Status: resp.Status, Err: decodeAPIError(resp)}
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool {
	var target *PreconditionError
	return errors.As(err, &target)
}

// IsSizeLimit reports whether err is a SizeLimitError.
func IsSizeLimit(err error) bool {
	var target *SizeLimitError
	return errors.As(err, &target)
}

// StatusOf returns the HTTP status carried by a StoreError, or zero.
func StatusOf(err error) int {
	var target *StoreError
	if errors.As(err, &target) {
		return target.Status
	}
	return 0
}

// IsNotFound reports whether err carries a 404 from the backing services.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
