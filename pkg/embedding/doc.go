// Package embedding looks up 3D word positions from the embedding
// service with retry, backoff, and a circuit breaker, and falls back
// to deterministic hash-based positions when the service is
// unavailable.
package embedding
