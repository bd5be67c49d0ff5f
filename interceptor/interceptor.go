package interceptor

import (
	"context"

	"github.com/jonwraymond/callrt/configbag"
)

// Phase identifies a point in the lifecycle of a call.
type Phase int

const (
	// PhaseBeforeExecution runs once, before the request is built.
	PhaseBeforeExecution Phase = iota
	// PhaseBeforeSigning runs on every attempt, before the request is signed.
	PhaseBeforeSigning
	// PhaseBeforeTransmit runs on every attempt, after signing.
	PhaseBeforeTransmit
	// PhaseAfterTransmit runs on every attempt that produced a response.
	PhaseAfterTransmit
	// PhaseAfterExecution runs once, after the call finished or failed.
	PhaseAfterExecution
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseBeforeExecution:
		return "before_execution"
	case PhaseBeforeSigning:
		return "before_signing"
	case PhaseBeforeTransmit:
		return "before_transmit"
	case PhaseAfterTransmit:
		return "after_transmit"
	case PhaseAfterExecution:
		return "after_execution"
	default:
		return "unknown"
	}
}

// Scope says where a hook was registered.
type Scope int

const (
	// ScopeClient hooks are registered with the client and run for every call.
	ScopeClient Scope = iota
	// ScopeCall hooks are registered for a single call.
	ScopeCall
)

// String returns the string representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeClient:
		return "client"
	case ScopeCall:
		return "call"
	default:
		return "unknown"
	}
}

// Interceptor is the base capability every hook provides. A hook takes part
// in a phase by also implementing that phase's interface.
//
// Contract:
//   - Concurrency: client-scope hooks are shared by concurrent calls and must
//     be safe for concurrent use.
//   - Errors: returning an error aborts the phase and fails the call.
type Interceptor interface {
	Name() string
}

// BeforeExecutionReader observes a call before its request is built.
type BeforeExecutionReader interface {
	ReadBeforeExecution(ctx context.Context, ic *Context, cfg *configbag.Bag) error
}

// BeforeSigningModifier may mutate the unsigned request and the config bag.
type BeforeSigningModifier interface {
	ModifyBeforeSigning(ctx context.Context, ic *Context, cfg *configbag.Bag) error
}

// BeforeTransmitModifier may mutate the signed request before it is sent.
type BeforeTransmitModifier interface {
	ModifyBeforeTransmit(ctx context.Context, ic *Context, cfg *configbag.Bag) error
}

// AfterTransmitReader observes the transport response of an attempt.
type AfterTransmitReader interface {
	ReadAfterTransmit(ctx context.Context, ic *Context, cfg *configbag.Bag) error
}

// AfterExecutionReader observes the final outcome of a call.
type AfterExecutionReader interface {
	ReadAfterExecution(ctx context.Context, ic *Context, cfg *configbag.Bag) error
}

// hookFor returns the phase function implemented by i, or nil.
func hookFor(i Interceptor, phase Phase) func(context.Context, *Context, *configbag.Bag) error {
	switch phase {
	case PhaseBeforeExecution:
		if h, ok := i.(BeforeExecutionReader); ok {
			return h.ReadBeforeExecution
		}
	case PhaseBeforeSigning:
		if h, ok := i.(BeforeSigningModifier); ok {
			return h.ModifyBeforeSigning
		}
	case PhaseBeforeTransmit:
		if h, ok := i.(BeforeTransmitModifier); ok {
			return h.ModifyBeforeTransmit
		}
	case PhaseAfterTransmit:
		if h, ok := i.(AfterTransmitReader); ok {
			return h.ReadAfterTransmit
		}
	case PhaseAfterExecution:
		if h, ok := i.(AfterExecutionReader); ok {
			return h.ReadAfterExecution
		}
	}
	return nil
}
