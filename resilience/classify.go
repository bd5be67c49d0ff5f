package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrorKind is the retry classification of a failed attempt.
type ErrorKind int

const (
	// ClientError is a caller mistake; retrying cannot help.
	ClientError ErrorKind = iota
	// TransientError is a timeout or connection-level failure.
	TransientError
	// ThrottlingError means the service asked the client to slow down.
	ThrottlingError
	// ServerError is a service-side failure that may succeed on retry.
	ServerError
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case TransientError:
		return "transient"
	case ThrottlingError:
		return "throttling"
	case ServerError:
		return "server"
	default:
		return "client"
	}
}

// Retryable reports whether an error of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	return k != ClientError
}

// Classified is implemented by errors that know their own kind.
type Classified interface {
	error
	ErrorKind() ErrorKind
}

type kindError struct {
	err  error
	kind ErrorKind
}

func (e *kindError) Error() string        { return e.err.Error() }
func (e *kindError) Unwrap() error        { return e.err }
func (e *kindError) ErrorKind() ErrorKind { return e.kind }

// WithKind annotates err with an explicit kind. A nil err stays nil.
func WithKind(err error, kind ErrorKind) error {
	if err == nil {
		return nil
	}
	return &kindError{err: err, kind: kind}
}

// Classify returns the kind of err. An explicit kind anywhere in the chain
// wins; otherwise deadlines, timeouts and broken connections are transient
// and everything else is a client error.
func Classify(err error) ErrorKind {
	var c Classified
	if errors.As(err, &c) {
		return c.ErrorKind()
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return TransientError
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return TransientError
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransientError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return TransientError
	}
	return ClientError
}
