// Package orchestrator turns a logical API call into a governed sequence of
// signing, transmission and retry steps.
//
// A Client owns the client-scope interceptors, the runtime plugins and the
// retry token bucket shared by every call it issues. Each call gets a fresh
// config bag layered as
//
//	defaults → client → client plugins → call plugins → call head
//
// so that a call-scope plugin or interceptor can shadow any client value for
// that call only.
//
// Every attempt clones the request built by the Operation, runs the
// BeforeSigning hooks, signs with the time source found in the bag, runs the
// BeforeTransmit hooks, transmits and runs the AfterTransmit hooks. Failed
// attempts are classified and, when retryable, retried through
// resilience.Retry, which asks the token bucket for a permit first.
//
// Basic usage:
//
//	client, err := orchestrator.New(orchestrator.Config{
//		Signer:      auth.NewBearerSigner(auth.BearerSignerConfig{}),
//		Credentials: auth.NewStaticProvider("AKID", "secret", ""),
//	})
//	out, err := client.Invoke(ctx, op, input)
//
// Per-call customization:
//
//	out, err := client.Customize(op).
//		MutateRequest(func(r *http.Request) { r.Header.Set("X-Trace", "1") }).
//		Send(ctx, input)
package orchestrator
