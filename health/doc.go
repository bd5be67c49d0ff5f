// Package health reports whether a client can still make progress.
//
// Checkers inspect the shared state a client's calls depend on: the retry
// token bucket, the adaptive rate limiter and the credentials provider. An
// Aggregator runs them together and the HTTP handlers expose the result.
//
//	agg := health.ForClient(client, health.ClientCheckConfig{})
//	mux.Handle("/readyz", health.ReadinessHandler(agg))
//	mux.Handle("/health", health.DetailedHandler(agg))
package health
