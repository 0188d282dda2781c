// Package security implements the request-time abuse-prevention core:
// fixed-window rate limiting, temporary IP blocking, account lockout,
// one-time CSRF tokens, a bounded security event monitor with threshold
// alerting, and the request guard pipeline that composes them.
//
// Every store is process-local, mutex-guarded, and enforces expiry lazily on
// read; the periodic sweeps run by internal/background exist purely to bound
// memory. Nothing in this package holds global state: construct the services
// once at startup and pass them by handle.
package security
