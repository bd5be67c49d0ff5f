package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/configbag"
	"github.com/jonwraymond/callrt/interceptor"
	"github.com/jonwraymond/callrt/observe"
	"github.com/jonwraymond/callrt/resilience"
)

// call is the state of one Invoke.
type call struct {
	client *Client
	op     Operation
	meta   observe.OperationMeta
	log    observe.Logger
	hooks  interceptor.Interceptors
	ic     *interceptor.Context
	bag    *configbag.Bag
	base   *http.Request
}

func (c *Client) invoke(ctx context.Context, op Operation, meta observe.OperationMeta, input any, s callSettings) (any, error) {
	layers := slices.Clip(c.layers)
	callHooks := slices.Clone(s.interceptors)
	for _, p := range s.plugins {
		if p == nil {
			continue
		}
		layers = append(layers, p.Config())
		callHooks = append(callHooks, p.Interceptors()...)
	}

	cl := &call{
		client: c,
		op:     op,
		meta:   meta,
		log:    c.config.Middleware.Logger().WithOperation(meta),
		hooks:  interceptor.New(c.hooks, callHooks),
		ic:     interceptor.NewContext(input),
		bag:    configbag.New("call", layers...),
	}

	var attempts int
	err := cl.runHooks(ctx, interceptor.PhaseBeforeExecution)
	if err == nil {
		attempts, err = cl.execute(ctx)
	}
	cl.ic.SetErr(err)
	if herr := cl.runHooks(ctx, interceptor.PhaseAfterExecution); herr != nil && err == nil {
		err = herr
	}
	if err != nil {
		return nil, &OperationError{
			Service:   meta.Service,
			Operation: meta.Operation,
			Attempts:  attempts,
			Err:       err,
		}
	}
	return cl.ic.Output(), nil
}

func (c *call) execute(ctx context.Context) (int, error) {
	base, err := c.op.BuildRequest(ctx, c.ic.Input())
	if err != nil {
		return 0, fmt.Errorf("orchestrator: build request: %w", err)
	}
	if base == nil {
		return 0, ErrNilRequest
	}
	c.base = base

	bucket, _ := configbag.Load[*resilience.TokenBucket](c.bag)
	env := resilience.Env{
		Bucket:  bucket,
		Sleep:   configbag.LoadOr(c.bag, clock.SharedAsyncSleep{}),
		Limiter: c.client.limiter,
	}

	var attempts int
	err = c.retry(ctx, bucket).ExecuteWith(ctx, env, func(ctx context.Context, attempt int) error {
		attempts = attempt
		return c.attempt(ctx, attempt)
	})
	return attempts, err
}

// retry builds the call's retry strategy from the client configuration,
// adding logging, quota metrics and the rule that hook failures are final.
func (c *call) retry(ctx context.Context, bucket *resilience.TokenBucket) *resilience.Retry {
	cfg := c.client.config.Retry
	retryIf, onRetry, onQuota := cfg.RetryIf, cfg.OnRetry, cfg.OnQuotaExceeded

	cfg.RetryIf = func(err error) bool {
		var hookErr *interceptor.HookError
		if errors.As(err, &hookErr) {
			return false
		}
		if retryIf != nil {
			return retryIf(err)
		}
		return resilience.Classify(err).Retryable()
	}
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.log.Debug(ctx, "retry scheduled",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
			observe.Field{Key: "kind", Value: resilience.Classify(err).String()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}
	cfg.OnQuotaExceeded = func(attempt int, err error) {
		fields := []observe.Field{
			{Key: "attempt", Value: attempt},
			{Key: "error", Value: err.Error()},
		}
		if bucket != nil {
			fields = append(fields, observe.Field{Key: "available", Value: bucket.Available()})
		}
		c.log.Warn(ctx, "retry quota exhausted", fields...)
		c.client.config.Middleware.Metrics().RecordQuotaDenied(ctx, c.meta)
		if onQuota != nil {
			onQuota(attempt, err)
		}
	}
	return resilience.NewRetry(cfg)
}

func (c *call) attempt(ctx context.Context, attempt int) (err error) {
	mw := c.client.config.Middleware
	ctx, span := mw.Tracer().StartAttempt(ctx, c.meta, attempt)
	defer func() {
		mw.Tracer().EndSpan(span, err)
		mw.Metrics().RecordAttempt(ctx, c.meta, attempt, err)
	}()

	req, err := c.cloneRequest(ctx, attempt)
	if err != nil {
		return err
	}
	c.ic.SetAttempt(attempt)
	c.ic.SetRequest(req)
	c.ic.SetResponse(nil)
	c.ic.SetOutput(nil)

	if err := c.runHooks(ctx, interceptor.PhaseBeforeSigning); err != nil {
		return err
	}
	if err := c.sign(ctx); err != nil {
		return err
	}
	if err := c.runHooks(ctx, interceptor.PhaseBeforeTransmit); err != nil {
		return err
	}

	resp, err := c.transmit(ctx, attempt)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.ic.SetResponse(resp)

	if err := c.runHooks(ctx, interceptor.PhaseAfterTransmit); err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return c.responseError(resp)
	}

	out, err := c.op.ParseResponse(ctx, resp)
	if err != nil {
		return fmt.Errorf("orchestrator: parse response: %w", err)
	}
	c.ic.SetOutput(out)
	return nil
}

// cloneRequest copies the base request for one attempt. Bodies are replayed
// through GetBody; a body without one can only be sent once.
func (c *call) cloneRequest(ctx context.Context, attempt int) (*http.Request, error) {
	req := c.base.Clone(ctx)
	if c.base.Body == nil || c.base.Body == http.NoBody {
		return req, nil
	}
	if c.base.GetBody == nil {
		if attempt > 1 {
			return nil, errors.New("orchestrator: request body cannot be replayed")
		}
		return req, nil
	}
	body, err := c.base.GetBody()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: replay request body: %w", err)
	}
	req.Body = body
	return req, nil
}

// sign signs the in-flight request with the time source currently in the
// bag, so hooks that replaced it are honored.
func (c *call) sign(ctx context.Context) error {
	signer := c.client.config.Signer
	if signer == nil {
		return nil
	}
	provider, ok := configbag.Load[auth.CredentialsProvider](c.bag)
	if !ok || provider == nil {
		return auth.ErrMissingCredentials
	}
	creds, err := provider.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve credentials: %w", err)
	}
	req := c.ic.Request()
	if req == nil {
		return ErrNilRequest
	}
	now := configbag.LoadOr(c.bag, clock.SharedTimeSource{}).Now()
	if err := signer.Sign(ctx, req, creds, now); err != nil {
		return fmt.Errorf("orchestrator: sign request: %w", err)
	}
	return nil
}

// transmit sends the in-flight request. With an attempt timeout the body is
// read inside the deadline and handed back buffered.
func (c *call) transmit(ctx context.Context, attempt int) (*http.Response, error) {
	req := c.ic.Request()
	if req == nil {
		return nil, ErrNilRequest
	}
	if c.client.timeout == nil {
		return c.send(req.WithContext(ctx), attempt)
	}

	var resp *http.Response
	err := c.client.timeout.Execute(ctx, func(ctx context.Context) error {
		r, err := c.send(req.WithContext(ctx), attempt)
		if err != nil {
			return err
		}
		body, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return &TransportError{Attempt: attempt, Err: fmt.Errorf("read response body: %w", err)}
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *call) send(req *http.Request, attempt int) (*http.Response, error) {
	resp, err := c.client.config.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransportError{Attempt: attempt, Err: err}
	}
	return resp, nil
}

func (c *call) responseError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.client.config.MaxErrorBodyBytes))
	return &ResponseError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		BodyErr:    err,
	}
}

func (c *call) runHooks(ctx context.Context, phase interceptor.Phase) error {
	err := c.hooks.Run(ctx, phase, c.ic, c.bag)
	var hookErr *interceptor.HookError
	if errors.As(err, &hookErr) {
		c.log.Error(ctx, "interceptor failed",
			observe.Field{Key: "phase", Value: hookErr.Phase.String()},
			observe.Field{Key: "interceptor", Value: hookErr.Interceptor},
			observe.Field{Key: "scope", Value: hookErr.Scope.String()},
			observe.Field{Key: "error", Value: hookErr.Err.Error()},
		)
	}
	return err
}
