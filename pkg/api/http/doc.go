// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Service information
//   - Health checks against the database
//   - Prometheus metrics
//   - Listing and creating users
//
// Every request passes through security headers, CORS, compression and
// request id middleware, and is timed into the request duration histogram.
package http
