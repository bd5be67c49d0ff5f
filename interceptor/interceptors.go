package interceptor

import (
	"context"

	"github.com/jonwraymond/callrt/configbag"
)

// Interceptors is the ordered hook set of one call: the client-scope list
// followed by the call-scope list.
//
// Contract:
//   - Ordering: for every phase, client hooks run before call hooks, each in
//     registration order.
//   - Ownership: New copies both lists; later changes to the caller's slices do
//     not affect a built Interceptors.
type Interceptors struct {
	client []Interceptor
	call   []Interceptor
}

// New builds the hook set for a call.
func New(client, call []Interceptor) Interceptors {
	return Interceptors{
		client: compact(client),
		call:   compact(call),
	}
}

func compact(in []Interceptor) []Interceptor {
	out := make([]Interceptor, 0, len(in))
	for _, i := range in {
		if i != nil {
			out = append(out, i)
		}
	}
	return out
}

// Len returns the total number of registered hooks.
func (is Interceptors) Len() int {
	return len(is.client) + len(is.call)
}

// Names returns hook names in execution order.
func (is Interceptors) Names() []string {
	names := make([]string, 0, is.Len())
	for _, i := range is.client {
		names = append(names, i.Name())
	}
	for _, i := range is.call {
		names = append(names, i.Name())
	}
	return names
}

// Run executes phase for every hook that implements it. The first failing
// hook aborts the phase and its error is returned as a *HookError.
func (is Interceptors) Run(ctx context.Context, phase Phase, ic *Context, cfg *configbag.Bag) error {
	if err := runScope(ctx, phase, ScopeClient, is.client, ic, cfg); err != nil {
		return err
	}
	return runScope(ctx, phase, ScopeCall, is.call, ic, cfg)
}

func runScope(ctx context.Context, phase Phase, scope Scope, hooks []Interceptor, ic *Context, cfg *configbag.Bag) error {
	for _, i := range hooks {
		fn := hookFor(i, phase)
		if fn == nil {
			continue
		}
		if err := fn(ctx, ic, cfg); err != nil {
			return &HookError{
				Phase:       phase,
				Interceptor: i.Name(),
				Scope:       scope,
				Err:         err,
			}
		}
	}
	return nil
}
