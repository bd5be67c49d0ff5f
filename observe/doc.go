// Package observe provides tracing, metrics and structured logging for
// orchestrated calls.
//
// Every call is described by an OperationMeta (service and operation name).
// The orchestrator opens one span per call and one child span per attempt,
// records call, attempt and retry-quota metrics, and logs through a JSON
// Logger scoped to the operation. Exporters are selected by name through the
// exporters subpackage.
package observe
