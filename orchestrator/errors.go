package orchestrator

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/callrt/resilience"
)

// Sentinel errors for client construction and invocation.
var (
	ErrNilOperation             = errors.New("orchestrator: operation is nil")
	ErrSignerWithoutCredentials = errors.New("orchestrator: signer configured without a credentials provider")
	ErrUnknownRetryMode         = errors.New("orchestrator: unknown retry mode")
	ErrNilRequest               = errors.New("orchestrator: operation built a nil request")
)

// OperationError is returned by Invoke for every failed call.
type OperationError struct {
	Service   string
	Operation string
	Attempts  int
	Err       error
}

func (e *OperationError) Error() string {
	id := e.Operation
	if e.Service != "" {
		id = e.Service + "." + e.Operation
	}
	if e.Attempts == 0 {
		return fmt.Sprintf("orchestrator: %s failed: %v", id, e.Err)
	}
	return fmt.Sprintf("orchestrator: %s failed after %d attempt(s): %v", id, e.Attempts, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// TransportError reports a request that produced no response.
type TransportError struct {
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("orchestrator: transport failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies transport failures as transient.
func (e *TransportError) ErrorKind() resilience.ErrorKind {
	return resilience.TransientError
}

// ResponseError reports a response with an error status.
type ResponseError struct {
	StatusCode int
	Status     string

	// Body holds at most MaxErrorBodyBytes of the response body. When
	// reading it failed part-way, Body is what was read and BodyErr the
	// read error.
	Body    []byte
	BodyErr error
}

func (e *ResponseError) Error() string {
	if e.BodyErr != nil {
		return fmt.Sprintf("orchestrator: unexpected response status %s (reading body: %v)", e.Status, e.BodyErr)
	}
	return fmt.Sprintf("orchestrator: unexpected response status %s", e.Status)
}

// ErrorKind classifies the response status: 429 throttling, 408 transient,
// other 5xx server and everything else client.
func (e *ResponseError) ErrorKind() resilience.ErrorKind {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return resilience.ThrottlingError
	case e.StatusCode == http.StatusRequestTimeout:
		return resilience.TransientError
	case e.StatusCode >= 500:
		return resilience.ServerError
	default:
		return resilience.ClientError
	}
}

var (
	_ resilience.Classified = (*TransportError)(nil)
	_ resilience.Classified = (*ResponseError)(nil)
)
