// Package health serves the liveness and readiness probes of the
// gateway next to its metrics endpoint.
//
// Readiness aggregates registered checks, such as the reachability of
// the check cache, and turns unhealthy while the gateway drains on
// shutdown.
package health
