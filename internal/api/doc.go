// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /health and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /scrape to submit a search query, optionally waiting with ?wait=.
//   - GET /jobs/{id}/status and /jobs/{id}/result for job inspection.
//   - POST /jobs/{id}/cancel to stop queued or running jobs.
package api
