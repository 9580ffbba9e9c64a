// Package main hosts the comic service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, comic lookup,
//     search, task submission and per-site session management endpoints.
//   - Crawler façade: internal/comicbook.Service owns the shared session
//     manager, worker pool and TTL crawler cache; every request for the same
//     (site, comicid) within the cache window reuses one parsed index.
//   - Site adapters: internal/sites registers one crawler per supported
//     source behind the capability contract in internal/comic. Adapters are
//     thin glue over the shared session fetcher and payload decoders.
//   - Download pipeline: internal/download fans chapter image lists across
//     the bounded pool with retries, image verification and idempotent
//     skip-on-rerun, so interrupted downloads resume cleanly.
//   - Tasks: internal/task persists background download jobs (Postgres when
//     db.dsn is set, in-memory otherwise), deduplicates submissions by
//     parameter hash and optionally mails completion notices.
//   - Configuration & plumbing: Viper populates config from env/files; zap
//     provides structured logging; Prometheus metrics are exported via the
//     metrics middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: one bounded semaphore pool shared by chapter
//     resolution, aggregate search and image downloads. Shutdown is
//     coordinated via context cancellation from main.
//   - Politeness: per-site rate limits and proxies are configured under
//     crawler.requests_per_sec and crawler.proxies; cookies persist for the
//     process lifetime and can be exported/imported over the API.
//   - Run locally: go run ./cmd/comicd -config config.yaml (or rely on
//     COMICDL_* env overrides).
package main
