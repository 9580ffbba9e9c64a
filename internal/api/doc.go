// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz / readyz for liveness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/comics/... for comic and chapter lookups.
//   - GET /v1/search for single-site and aggregated search.
//   - POST /v1/tasks for background download submission.
//   - /v1/sites/{site}/... for proxy, cookie and login management.
package api
