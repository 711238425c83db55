package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received.
// Context carries the request context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// HTTPClientStart is emitted before an @http upstream call, symmetric with
// GRPCClientStart.
type HTTPClientStart struct {
	Method string
	URL    string
}

// HTTPClientFinish is emitted after an @http upstream call completes.
type HTTPClientFinish struct {
	Method   string
	URL      string
	Status   int
	Err      error
	Duration time.Duration
}
