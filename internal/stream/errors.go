package stream

import (
	"errors"
	"fmt"
	"io"
)

// errStreamEnded is reported when the server closes a stream cleanly.
var errStreamEnded = errors.New("stream ended by server")

// ConnectionError wraps a failure to reach or read from the push endpoint.
// The connection is retried.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the endpoint answers with something other
// than an event stream. Like an EventSource, the connection is not retried.
type StatusError struct {
	Endpoint    string
	StatusCode  int
	ContentType string
}

func (e *StatusError) Error() string {
	if e.ContentType != "" {
		return fmt.Sprintf("endpoint %s returned %d with content type %q", e.Endpoint, e.StatusCode, e.ContentType)
	}
	return fmt.Sprintf("endpoint %s returned %d", e.Endpoint, e.StatusCode)
}

// EndpointError is returned for an endpoint that cannot be requested at all.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint %q: %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a connection that failed with err should be
// reopened.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	var endpointErr *EndpointError
	return !errors.As(err, &endpointErr)
}

func wrapReadError(endpoint string, err error) error {
	if errors.Is(err, io.EOF) {
		return &ConnectionError{Endpoint: endpoint, Err: errStreamEnded}
	}
	return &ConnectionError{Endpoint: endpoint, Err: err}
}
