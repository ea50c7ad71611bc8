// Package middleware provides the HTTP middleware wrapped around the
// gateway handler: panic recovery, access logging, rate limiting and
// client IP resolution.
package middleware
