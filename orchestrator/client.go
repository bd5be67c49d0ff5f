package orchestrator

import (
	"context"
	"net/http"
	"slices"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/configbag"
	"github.com/jonwraymond/callrt/interceptor"
	"github.com/jonwraymond/callrt/observe"
	"github.com/jonwraymond/callrt/resilience"
)

// Operation describes one API operation: how to turn an input into a
// request and a response into an output.
type Operation interface {
	Meta() observe.OperationMeta
	BuildRequest(ctx context.Context, input any) (*http.Request, error)
	ParseResponse(ctx context.Context, resp *http.Response) (any, error)
}

// OperationSpec is an Operation assembled from functions.
type OperationSpec struct {
	Service string
	Name    string
	Build   func(ctx context.Context, input any) (*http.Request, error)
	Parse   func(ctx context.Context, resp *http.Response) (any, error)
}

// Meta returns the operation metadata.
func (o OperationSpec) Meta() observe.OperationMeta {
	return observe.OperationMeta{Service: o.Service, Operation: o.Name}
}

// BuildRequest calls Build.
func (o OperationSpec) BuildRequest(ctx context.Context, input any) (*http.Request, error) {
	return o.Build(ctx, input)
}

// ParseResponse calls Parse. A nil Parse yields a nil output.
func (o OperationSpec) ParseResponse(ctx context.Context, resp *http.Response) (any, error) {
	if o.Parse == nil {
		return nil, nil
	}
	return o.Parse(ctx, resp)
}

// Client issues calls through the interceptor pipeline.
//
// Contract:
//   - Concurrency: safe for concurrent use. Calls share only the token
//     bucket, the rate limiter and the credentials provider.
//   - Context: cancellation stops the call at its next suspension point.
//   - Errors: every failed call returns an *OperationError.
type Client struct {
	config  Config
	hooks   []interceptor.Interceptor
	layers  []*configbag.FrozenLayer // oldest first
	bucket  *resilience.TokenBucket
	limiter *resilience.RateLimiter
	timeout *resilience.Timeout

	timeSource  clock.TimeSource
	credentials auth.CredentialsProvider
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	c := &Client{config: config}

	c.bucket = config.SharedTokenBucket
	if c.bucket == nil {
		c.bucket = resilience.NewTokenBucket(config.TokenBucket)
	}
	if config.RetryMode == RetryModeAdaptive {
		c.limiter = resilience.NewRateLimiter(config.RateLimiter)
	}
	if config.AttemptTimeout > 0 {
		c.timeout = resilience.NewTimeout(resilience.TimeoutConfig{Timeout: config.AttemptTimeout})
	}

	defaults := configbag.NewLayer(LayerDefaults)
	configbag.Put(defaults, clock.NewSharedTimeSource(clock.SystemClock{}))
	configbag.Put(defaults, clock.NewSharedAsyncSleep(clock.DefaultSleep{}))

	client := configbag.NewLayer(LayerClient)
	if config.TimeSource != nil {
		configbag.Put(client, clock.NewSharedTimeSource(config.TimeSource))
	}
	if config.Sleep != nil {
		configbag.Put(client, clock.NewSharedAsyncSleep(config.Sleep))
	}
	if config.Credentials != nil {
		configbag.Put(client, config.Credentials)
	}

	c.layers = []*configbag.FrozenLayer{defaults.Freeze(), client.Freeze()}
	c.hooks = slices.Clone(config.Interceptors)
	plugins := append([]RuntimePlugin{StandardTokenBucketPlugin(c.bucket)}, config.Plugins...)
	for _, p := range plugins {
		if p == nil {
			continue
		}
		c.layers = append(c.layers, p.Config())
		c.hooks = append(c.hooks, p.Interceptors()...)
	}

	// Client-scope values are what a call sees before its own plugins.
	resolved := configbag.New(LayerClient, c.layers...)
	if bucket, ok := configbag.Load[*resilience.TokenBucket](resolved); ok && bucket != nil {
		c.bucket = bucket
	}
	c.timeSource = configbag.LoadOr(resolved, clock.SharedTimeSource{})
	c.credentials, _ = configbag.Load[auth.CredentialsProvider](resolved)
	if config.Signer != nil && c.credentials == nil {
		return nil, ErrSignerWithoutCredentials
	}
	return c, nil
}

// TokenBucket returns the retry token bucket calls draw from: the newest
// one installed at client scope.
func (c *Client) TokenBucket() *resilience.TokenBucket {
	return c.bucket
}

// RateLimiter returns the adaptive mode limiter, or nil in standard mode.
func (c *Client) RateLimiter() *resilience.RateLimiter {
	return c.limiter
}

// Credentials returns the client-scope credentials provider, or nil.
func (c *Client) Credentials() auth.CredentialsProvider {
	return c.credentials
}

// TimeSource returns the client-scope time source.
func (c *Client) TimeSource() clock.TimeSource {
	return c.timeSource
}

// Interceptors returns the names of the client-scope interceptors in run
// order.
func (c *Client) Interceptors() []string {
	return interceptor.New(c.hooks, nil).Names()
}

// CallOption customizes a single call.
type CallOption func(*callSettings)

type callSettings struct {
	interceptors []interceptor.Interceptor
	plugins      []RuntimePlugin
}

// WithInterceptors adds call-scope interceptors.
func WithInterceptors(is ...interceptor.Interceptor) CallOption {
	return func(s *callSettings) {
		s.interceptors = append(s.interceptors, is...)
	}
}

// WithPlugins adds call-scope plugins.
func WithPlugins(ps ...RuntimePlugin) CallOption {
	return func(s *callSettings) {
		s.plugins = append(s.plugins, ps...)
	}
}

// WithMutateRequest adds a call-scope hook that edits the request before
// signing.
func WithMutateRequest(fn func(req *http.Request)) CallOption {
	return WithInterceptors(interceptor.MutateRequest(fn))
}

// Invoke runs op with input and returns the parsed output.
func (c *Client) Invoke(ctx context.Context, op Operation, input any, opts ...CallOption) (any, error) {
	if op == nil {
		return nil, &OperationError{Err: ErrNilOperation}
	}
	meta := op.Meta()
	if err := meta.Validate(); err != nil {
		return nil, &OperationError{Service: meta.Service, Err: err}
	}

	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}

	call := c.config.Middleware.Wrap(func(ctx context.Context, meta observe.OperationMeta, input any) (any, error) {
		return c.invoke(ctx, op, meta, input, settings)
	})
	return call(ctx, meta, input)
}

// Customize starts a customized call of op.
func (c *Client) Customize(op Operation) *CustomizableOperation {
	return &CustomizableOperation{client: c, op: op}
}

// CustomizableOperation collects call-scope interceptors and plugins for one
// call.
type CustomizableOperation struct {
	client *Client
	op     Operation
	opts   []CallOption
}

// Interceptor adds a call-scope interceptor.
func (o *CustomizableOperation) Interceptor(i interceptor.Interceptor) *CustomizableOperation {
	o.opts = append(o.opts, WithInterceptors(i))
	return o
}

// MutateRequest adds a call-scope request mutation.
func (o *CustomizableOperation) MutateRequest(fn func(req *http.Request)) *CustomizableOperation {
	o.opts = append(o.opts, WithMutateRequest(fn))
	return o
}

// Plugin adds a call-scope plugin.
func (o *CustomizableOperation) Plugin(p RuntimePlugin) *CustomizableOperation {
	o.opts = append(o.opts, WithPlugins(p))
	return o
}

// Send invokes the operation with the collected customizations.
func (o *CustomizableOperation) Send(ctx context.Context, input any) (any, error) {
	return o.client.Invoke(ctx, o.op, input, o.opts...)
}
