// Package clientx provides the hardened outbound HTTPS client core used to
// talk to partner services over mutual TLS.
//
// # Overview
//
// New loads the client certificate, key and root CA (failing fast with a
// CredentialLoadError), builds a TLS 1.2+ transport with bounded timeouts,
// and composes an ordered pipeline of stages around a single HTTP exchange.
//
// # Pipeline
//
// Stages are listed outermost first. Outbound work runs in list order and
// inbound work in reverse. The default list is:
//
//	tracing     one client span per call
//	metrics     request count and duration
//	breaker     per-service circuit breaker (sony/gobreaker)
//	classifier  non-2xx -> *UpstreamStatusError
//	encoder     Request.Body -> JSON payload
//	logger      one structured line per call, never bodies
//	normalizer  camelCase keys -> snake_case
//	decoder     raw body -> JSON value, *MalformedResponseError on bad 2xx bodies
//
// # Errors
//
// Every failure carries a core/errors code: CREDENTIAL_LOAD, TLS,
// CIRCUIT_OPEN, TRANSPORT, MALFORMED_RESPONSE, UPSTREAM_STATUS, or
// INVALID_ARGUMENT for bad configuration and unserializable bodies. Causes
// are preserved for errors.Is and errors.As. Nothing is retried.
//
// # Breakers
//
// Breaker state is shared per service name through DefaultBreakers. A breaker
// opens after Threshold consecutive failures (transport, TLS, 5xx), rejects
// calls with *CircuitOpenError during Cooldown, then lets a single trial call through.
package clientx
