// Package interceptor defines the lifecycle hooks that run around signing and
// transmission of a call, and the ordered two-scope pipeline that executes
// them.
//
// An interceptor implements Interceptor plus any subset of the phase
// interfaces (BeforeSigningModifier, BeforeTransmitModifier, ...). Hooks are
// registered in two scopes: client scope, registered once with the client and
// applied to every call, and call scope, registered per call through the
// customization builder. For every phase, client-scope hooks run first in
// registration order, then call-scope hooks in registration order. A call
// hook can therefore build on what a client hook left in the request or the
// config bag.
//
// A hook that returns an error aborts its phase; no later hook of that phase
// runs and the error surfaces as a *HookError.
package interceptor
