package interceptor

import (
	"context"
	"net/http"

	"github.com/jonwraymond/callrt/configbag"
)

// HookFunc is the signature shared by every phase method.
type HookFunc func(ctx context.Context, ic *Context, cfg *configbag.Bag) error

type beforeSigningFunc struct {
	name string
	fn   HookFunc
}

func (f beforeSigningFunc) Name() string { return f.name }

func (f beforeSigningFunc) ModifyBeforeSigning(ctx context.Context, ic *Context, cfg *configbag.Bag) error {
	return f.fn(ctx, ic, cfg)
}

// BeforeSigningFunc returns an interceptor that runs fn before signing.
func BeforeSigningFunc(name string, fn HookFunc) Interceptor {
	return beforeSigningFunc{name: name, fn: fn}
}

type beforeTransmitFunc struct {
	name string
	fn   HookFunc
}

func (f beforeTransmitFunc) Name() string { return f.name }

func (f beforeTransmitFunc) ModifyBeforeTransmit(ctx context.Context, ic *Context, cfg *configbag.Bag) error {
	return f.fn(ctx, ic, cfg)
}

// BeforeTransmitFunc returns an interceptor that runs fn after signing and
// before transmission.
func BeforeTransmitFunc(name string, fn HookFunc) Interceptor {
	return beforeTransmitFunc{name: name, fn: fn}
}

type afterTransmitFunc struct {
	name string
	fn   HookFunc
}

func (f afterTransmitFunc) Name() string { return f.name }

func (f afterTransmitFunc) ReadAfterTransmit(ctx context.Context, ic *Context, cfg *configbag.Bag) error {
	return f.fn(ctx, ic, cfg)
}

// AfterTransmitFunc returns an interceptor that runs fn once a response has
// been received.
func AfterTransmitFunc(name string, fn HookFunc) Interceptor {
	return afterTransmitFunc{name: name, fn: fn}
}

// MutateRequest returns a single-purpose interceptor that applies fn to the
// unsigned request before signing.
func MutateRequest(fn func(req *http.Request)) Interceptor {
	return BeforeSigningFunc("mutate_request", func(_ context.Context, ic *Context, _ *configbag.Bag) error {
		if req := ic.Request(); req != nil {
			fn(req)
		}
		return nil
	})
}

var (
	_ BeforeSigningModifier  = beforeSigningFunc{}
	_ BeforeTransmitModifier = beforeTransmitFunc{}
	_ AfterTransmitReader    = afterTransmitFunc{}
)
