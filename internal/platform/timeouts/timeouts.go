// Package timeouts defines shared timeout constants used across the console.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// UpstreamRequest caps the time allowed for a single HTTP request from the
// console to the upstream API. Calls past this bound are abandoned and
// treated as upstream failures.
const UpstreamRequest = 10 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown caps how long a server may spend draining connections during
// graceful shutdown.
const Shutdown = 5 * time.Second
